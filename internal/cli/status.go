package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mawsuah/tahqiq/internal/store"
	"github.com/mawsuah/tahqiq/internal/validate"
)

var statusVersion string

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report progress and cost for a version",
	Long: `Status reports per-stage completion, recorded failures, checkpoint
positions, accumulated cost, and validation counts for a version.

Example:
  tahqiq status --version v1`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusVersion, "version", "", "enrichment version tag (required)")
	_ = statusCmd.MarkFlagRequired("version")
}

func runStatus(cmd *cobra.Command, args []string) error {
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
	total, err := st.CountItems(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Corpus: %d items (version %s)\n\n", total, statusVersion)

	stats, err := st.StatsForVersion(ctx, statusVersion)
	if err != nil {
		return err
	}
	for _, s := range stats {
		marker, err := st.LoadCheckpoint(ctx, s.Stage, statusVersion)
		if err != nil {
			return err
		}
		fmt.Printf("%-9s %d/%d completed, %d failed, $%.4f, checkpoint at item %d\n",
			s.Stage, s.Completed, total, s.Failed, s.CostUSD, marker.LastItemID)
	}

	counts, err := st.ValidationCounts(ctx, statusVersion)
	if err != nil {
		return err
	}
	if len(counts) > 0 {
		fmt.Println()
		printValidationCounts(&validate.Summary{Version: statusVersion, Counts: counts})
	}

	if _, err := st.LoadAnchors(ctx); errors.Is(err, store.ErrNotFound) {
		fmt.Println("\nNo anchor set installed")
	}
	return nil
}
