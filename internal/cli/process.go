package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mawsuah/tahqiq/internal/model"
	"github.com/mawsuah/tahqiq/internal/pipeline"
	"github.com/mawsuah/tahqiq/internal/prompt"
)

var (
	procVersion  string
	procStage    string
	procNoResume bool
	procValidate bool
	procBudget   float64
	procProvider string
	procModel    string
	procBatch    int
	procWorkers  int
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run enrichment stages for a version",
	Long: `Process drives unprocessed corpus items through the enrichment
stages in dependency order: temporal assignment first, then semantic
tagging. Runs resume from the last durable checkpoint unless --no-resume
is given, which also retries previously failed items.

Exit status: 0 on success, 2 when the run finished with permanently
failed items, 3 when the hard cost budget halted the run.

Example:
  tahqiq process --version v1
  tahqiq process --version v1 --stage temporal --budget 25.00
  tahqiq process --version v2 --no-resume --validate`,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVar(&procVersion, "version", "", "enrichment version tag (required)")
	processCmd.Flags().StringVar(&procStage, "stage", "", "single stage to run (temporal, semantic); default both")
	processCmd.Flags().BoolVar(&procNoResume, "no-resume", false, "discard checkpoint and retry failed items")
	processCmd.Flags().BoolVar(&procValidate, "validate", false, "run validation after the stages complete")
	processCmd.Flags().Float64Var(&procBudget, "budget", 0, "hard cost limit in USD (0 = config value)")
	processCmd.Flags().StringVar(&procProvider, "provider", "", "LLM provider override (openai, stub)")
	processCmd.Flags().StringVar(&procModel, "model", "", "LLM model override")
	processCmd.Flags().IntVar(&procBatch, "batch", 0, "batch size override")
	processCmd.Flags().IntVar(&procWorkers, "concurrency", 0, "worker count override")
	_ = processCmd.MarkFlagRequired("version")
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if procBudget > 0 {
		cfg.Budget.HardLimitUSD = procBudget
	}
	if procProvider != "" {
		cfg.LLM.Provider = procProvider
	}
	if procModel != "" {
		cfg.LLM.Model = procModel
	}
	if procBatch > 0 {
		cfg.Processing.BatchSize = procBatch
	}
	if procWorkers > 0 {
		cfg.Processing.Concurrency = procWorkers
	}
	if cfg.LLM.Provider == "openai" && cfg.LLM.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	var stages []model.Stage
	if procStage != "" {
		st := model.Stage(procStage)
		if !st.Valid() {
			return fmt.Errorf("unknown stage %q (temporal, semantic)", procStage)
		}
		stages = []model.Stage{st}
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	// SIGINT/SIGTERM cancel cooperatively: in-flight items finish and the
	// run halts at a checkpoint boundary.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	anchors, err := st.LoadAnchors(ctx)
	if err != nil {
		return fmt.Errorf("anchor set: %w (run 'tahqiq anchors load' first)", err)
	}

	if procNoResume {
		targets := stages
		if len(targets) == 0 {
			targets = model.Stages()
		}
		for _, target := range targets {
			if err := st.ResetStage(ctx, target, procVersion); err != nil {
				return fmt.Errorf("reset %s: %w", target, err)
			}
		}
	}

	client, err := buildClient(cfg)
	if err != nil {
		return err
	}
	builder := prompt.NewBuilder(anchors, cfg.LLM.MaxPromptTokens, cfg.LLM.MaxTokens)

	logf := func(string, ...any) {}
	if verbose {
		logf = func(format string, a ...any) { fmt.Fprintf(os.Stderr, format+"\n", a...) }
	}

	orch := pipeline.New(st, client, builder, anchors, cfg, logf)
	result, err := orch.Run(ctx, procVersion, stages, procValidate)
	printRunResult(result)
	if err != nil {
		return err
	}
	if result.FailedItems() > 0 {
		return fmt.Errorf("%d items permanently failed: %w", result.FailedItems(), ErrPartialFailure)
	}
	return nil
}

func printRunResult(result *pipeline.Result) {
	if result == nil {
		return
	}
	for _, report := range result.Reports {
		fmt.Printf("%-9s %d succeeded, %d failed, %d recovered, checkpoint at item %d\n",
			report.Stage, report.Succeeded, report.FailedPermanent, report.Recovered,
			report.Checkpoint.LastItemID)
	}
	if result.Summary != nil {
		printValidationCounts(result.Summary)
	}
	fmt.Printf("%d calls (%d cache hits), %d tokens, $%.4f, %s elapsed\n",
		result.Usage.Calls, result.Usage.CacheHits, result.Usage.Tokens,
		result.Usage.CostUSD, result.Elapsed.Round(time.Millisecond))
	if result.BudgetExceeded {
		fmt.Println("Halted: hard cost budget reached; resume with a higher --budget")
	}
}
