package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mawsuah/tahqiq/internal/model"
	"github.com/mawsuah/tahqiq/internal/validate"
)

var (
	valVersion  string
	valCategory string
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run consistency checks over enrichment output",
	Long: `Validate checks already-written enrichment data for a version:
anchor resolution and ordering (temporal), vocabulary compliance and
axis population (semantic), confidence/evidence agreement (consistency),
and the derived overall quality score. Results are appended to the
store; enrichment rows are never touched.

Example:
  tahqiq validate --version v1
  tahqiq validate --version v1 --category temporal`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&valVersion, "version", "", "enrichment version tag (required)")
	validateCmd.Flags().StringVar(&valCategory, "category", "", "single category to run (temporal, semantic, consistency, overall); default all")
	_ = validateCmd.MarkFlagRequired("version")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ctx := context.Background()
	anchors, err := st.LoadAnchors(ctx)
	if err != nil {
		return fmt.Errorf("anchor set: %w (run 'tahqiq anchors load' first)", err)
	}
	v := validate.New(st, anchors)

	if valCategory != "" {
		category := model.ValidationCategory(valCategory)
		if !category.Valid() {
			return fmt.Errorf("unknown category %q (temporal, semantic, consistency, overall)", valCategory)
		}
		var failed int64
		err := v.Validate(ctx, valVersion, category, func(o model.ValidationOutcome) error {
			if o.Status == model.StatusFail {
				failed++
				for _, issue := range o.Issues {
					fmt.Printf("item %d: [%s] %s\n", o.ItemID, issue.Severity, issue.Description)
				}
			}
			return st.AppendValidation(ctx, []model.ValidationOutcome{o})
		})
		if err != nil {
			return err
		}
		fmt.Printf("Category %s: %d items failed\n", category, failed)
		if failed > 0 {
			return fmt.Errorf("%d validation failures: %w", failed, ErrPartialFailure)
		}
		return nil
	}

	summary, err := v.Run(ctx, valVersion)
	if err != nil {
		return err
	}
	printValidationCounts(summary)
	if summary.Failed > 0 {
		return fmt.Errorf("%d validation failures: %w", summary.Failed, ErrPartialFailure)
	}
	return nil
}

func printValidationCounts(summary *validate.Summary) {
	categories := make([]string, 0, len(summary.Counts))
	for c := range summary.Counts {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)

	for _, c := range categories {
		byStatus := summary.Counts[model.ValidationCategory(c)]
		fmt.Printf("%-12s pass %d, warning %d, fail %d\n", c,
			byStatus[model.StatusPass], byStatus[model.StatusWarning], byStatus[model.StatusFail])
	}
}
