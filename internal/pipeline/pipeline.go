// Package pipeline sequences the enrichment stages for one version:
// temporal before semantic, validation after both. It owns the budget
// check and periodic progress reporting; the per-stage mechanics live in
// the stage package.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/mawsuah/tahqiq/internal/anchor"
	"github.com/mawsuah/tahqiq/internal/llm"
	"github.com/mawsuah/tahqiq/internal/model"
	"github.com/mawsuah/tahqiq/internal/prompt"
	"github.com/mawsuah/tahqiq/internal/stage"
	"github.com/mawsuah/tahqiq/internal/store"
	"github.com/mawsuah/tahqiq/internal/validate"
)

// Orchestrator runs the stages in dependency order for one version.
type Orchestrator struct {
	store   *store.Store
	client  *llm.Client
	builder *prompt.Builder
	anchors *anchor.Set
	cfg     *model.Config

	// logf receives progress lines; nil discards them.
	logf func(format string, args ...any)
}

// New builds an orchestrator. logf may be nil.
func New(st *store.Store, client *llm.Client, builder *prompt.Builder, anchors *anchor.Set, cfg *model.Config, logf func(string, ...any)) *Orchestrator {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Orchestrator{store: st, client: client, builder: builder, anchors: anchors, cfg: cfg, logf: logf}
}

// Result summarizes one orchestrated run.
type Result struct {
	Version string
	Reports []*stage.Report
	Summary *validate.Summary // nil when validation was not requested
	Usage   llm.Usage
	Elapsed time.Duration

	// BudgetExceeded marks a run halted by the hard cost limit. The halt
	// is graceful: in-flight items finished and checkpoints were written.
	BudgetExceeded bool
}

// FailedItems totals the permanent per-item failures across stages.
func (r *Result) FailedItems() int {
	n := 0
	for _, rep := range r.Reports {
		n += rep.FailedPermanent
	}
	return n
}

// overBudget reports whether the hard limit has been reached.
func (o *Orchestrator) overBudget() bool {
	limit := o.cfg.Budget.HardLimitUSD
	return limit > 0 && o.client.Meter().Snapshot().CostUSD >= limit
}

// Run executes the requested stages in fixed order for the version, then
// validation when asked. On budget exhaustion the run stops dispatching,
// finishes in-flight work, and returns both the partial result and
// ErrBudgetExceeded.
func (o *Orchestrator) Run(ctx context.Context, version string, stages []model.Stage, runValidation bool) (*Result, error) {
	start := time.Now()
	result := &Result{Version: version}

	if len(stages) == 0 {
		stages = model.Stages()
	}

	for _, st := range stages {
		if o.overBudget() {
			result.BudgetExceeded = true
			break
		}

		stopProgress := o.startProgress(ctx, st, version, start)
		proc := stage.New(st, o.store, o.client, o.builder, o.cfg.Processing)
		proc.SetHaltCheck(o.overBudget)

		report, err := proc.Run(ctx, version)
		stopProgress()
		if err != nil {
			result.Elapsed = time.Since(start)
			return result, fmt.Errorf("stage %s: %w", st, err)
		}
		result.Reports = append(result.Reports, report)
		o.logf("stage %s done: %d succeeded, %d failed, %d recovered, $%.4f",
			st, report.Succeeded, report.FailedPermanent, report.Recovered, report.CostUSD)

		if report.Halted {
			if o.overBudget() {
				result.BudgetExceeded = true
			}
			break
		}
	}

	if runValidation && !result.BudgetExceeded && ctx.Err() == nil {
		summary, err := validate.New(o.store, o.anchors).Run(ctx, version)
		if err != nil {
			result.Elapsed = time.Since(start)
			return result, fmt.Errorf("validation: %w", err)
		}
		result.Summary = summary
	}

	result.Usage = o.client.Meter().Snapshot()
	result.Elapsed = time.Since(start)

	if result.BudgetExceeded {
		return result, fmt.Errorf("cost %.4f reached hard limit %.4f: %w",
			result.Usage.CostUSD, o.cfg.Budget.HardLimitUSD, model.ErrBudgetExceeded)
	}
	return result, nil
}

// startProgress emits a periodic progress line until the returned stop
// function is called.
func (o *Orchestrator) startProgress(ctx context.Context, st model.Stage, version string, start time.Time) func() {
	interval := o.cfg.Budget.ProgressInterval
	if interval <= 0 {
		return func() {}
	}

	total, err := o.store.CountItems(ctx)
	if err != nil {
		total = 0
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				marker, err := o.store.LoadCheckpoint(ctx, st, version)
				if err != nil {
					continue
				}
				usage := o.client.Meter().Snapshot()
				budget := "unlimited"
				if o.cfg.Budget.HardLimitUSD > 0 {
					budget = fmt.Sprintf("%.2f", o.cfg.Budget.HardLimitUSD)
				}
				o.logf("progress %s: %d/%d items, $%.4f of %s, %s elapsed",
					st, marker.TotalProcessed, total, usage.CostUSD, budget,
					time.Since(start).Round(time.Second))
			}
		}
	}()
	return func() { close(done) }
}
