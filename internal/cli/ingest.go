package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mawsuah/tahqiq/internal/model"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest <corpus.json> [more.json...]",
	Short: "Load pre-normalized corpus items into the store",
	Long: `Ingest loads corpus items from JSON files produced by the
preprocessing collaborator: normalized text, pre-parsed narrator chains
and pre-extracted temporal markers. Each file holds a JSON array of
items. Items already present (same group and item-in-group) are skipped.

Example:
  tahqiq ingest bukhari.json muslim.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
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
	var inserted, duplicates int

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		var items []model.CorpusItem
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		for i := range items {
			if items[i].PrimaryText == "" {
				return fmt.Errorf("%s: item %d has no primary text", path, items[i].ID)
			}
			if items[i].SourceFile == "" {
				items[i].SourceFile = filepath.Base(path)
			}
		}

		result, err := st.InsertItems(ctx, items)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		inserted += result.Inserted
		duplicates += result.Duplicates
		if verbose {
			fmt.Fprintf(os.Stderr, "%s: %d inserted, %d already present\n",
				path, result.Inserted, result.Duplicates)
		}
	}

	total, err := st.CountItems(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Ingested %d items (%d duplicates skipped), corpus now %d items\n",
		inserted, duplicates, total)
	return nil
}
