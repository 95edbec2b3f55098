// Package stage drives batches of corpus items through the model client
// for one enrichment stage, validates the structured responses, and
// persists results checkpoint-aligned: the marker only ever advances
// together with the durable writes it covers.
package stage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mawsuah/tahqiq/internal/llm"
	"github.com/mawsuah/tahqiq/internal/model"
	"github.com/mawsuah/tahqiq/internal/prompt"
	"github.com/mawsuah/tahqiq/internal/store"
	"github.com/mawsuah/tahqiq/internal/worker"
)

// outcome is the terminal state of one item within a run.
type outcome struct {
	itemID    int64
	temporal  *model.TemporalAssignment
	semantic  *model.SemanticTags
	failure   *store.ItemFailure
	recovered bool
	cost      float64
	tokens    int64
	aborted   bool // Cancelled before reaching a terminal state
}

func (o *outcome) GetError() error {
	if o.failure != nil {
		return errors.New(o.failure.Reason)
	}
	return nil
}

// Processor runs one enrichment stage for a version.
type Processor struct {
	stage   model.Stage
	store   *store.Store
	client  *llm.Client
	builder *prompt.Builder
	cfg     model.ProcessingConfig

	// halt, when set, is polled before each item is dispatched and
	// between batches; returning true stops dispatch and halts the run
	// at a checkpoint boundary. The orchestrator wires the budget check
	// here.
	halt func() bool
}

// New creates a processor for the given stage.
func New(stage model.Stage, st *store.Store, client *llm.Client, builder *prompt.Builder, cfg model.ProcessingConfig) *Processor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = 25
	}
	return &Processor{stage: stage, store: st, client: client, builder: builder, cfg: cfg}
}

// SetHaltCheck installs the halt poll.
func (p *Processor) SetHaltCheck(halt func() bool) { p.halt = halt }

// Run processes every unprocessed item for the version, resuming from
// the stored checkpoint. Per-item failures are isolated: they are
// recorded and the run continues. The run halts cleanly at a checkpoint
// boundary on cancellation or when the halt poll fires.
func (p *Processor) Run(ctx context.Context, version string) (*Report, error) {
	start := time.Now()

	marker, err := p.store.LoadCheckpoint(ctx, p.stage, version)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	report := &Report{Stage: p.stage, Version: version, Checkpoint: marker}

	for {
		if ctx.Err() != nil || (p.halt != nil && p.halt()) {
			report.Halted = true
			break
		}

		ids, err := p.store.UnprocessedItemIDs(ctx, p.stage, version, marker.LastItemID, p.cfg.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("scan unprocessed: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		items, err := p.store.ItemsByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("fetch batch: %w", err)
		}

		outcomes := p.runBatch(ctx, version, items)

		marker, err = p.commitOutcomes(ctx, version, marker, outcomes, report)
		if err != nil {
			return nil, err
		}
		report.Checkpoint = marker

		// A batch with aborted items means cancellation or the halt
		// poll hit mid-batch: completed work is committed, the rest
		// waits for resume.
		for _, o := range outcomes {
			if o.aborted {
				report.Halted = true
			}
		}
		if report.Halted {
			break
		}
	}

	report.Elapsed = time.Since(start)
	return report, nil
}

// runBatch dispatches up to Concurrency items in parallel and waits for
// every one to reach a terminal (or aborted) state.
func (p *Processor) runBatch(ctx context.Context, version string, items []model.CorpusItem) []*outcome {
	pool := worker.NewPool(ctx, p.cfg.Concurrency, len(items))
	pool.Start()

	for _, item := range items {
		pool.Submit(&itemJob{p: p, version: version, item: item})
	}
	results := pool.Wait()

	byID := make(map[int64]*outcome, len(items))
	for _, r := range results {
		o := r.(*outcome)
		byID[o.itemID] = o
	}
	// Jobs dropped by a cancelled pool never produced a result; mark
	// them aborted so the checkpoint cannot pass them.
	outcomes := make([]*outcome, 0, len(items))
	for _, item := range items {
		if o, ok := byID[item.ID]; ok {
			outcomes = append(outcomes, o)
		} else {
			outcomes = append(outcomes, &outcome{itemID: item.ID, aborted: true})
		}
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].itemID < outcomes[j].itemID })
	return outcomes
}

// itemJob adapts one item to the worker pool.
type itemJob struct {
	p       *Processor
	version string
	item    model.CorpusItem
}

func (j *itemJob) Execute(ctx context.Context) worker.Result {
	return j.p.processItem(ctx, j.version, j.item)
}

// processItem takes one item to a terminal state: a persisted-ready
// output, or a recorded failure. Domain-invariant violations are retried
// with adjusted prompting a bounded number of times.
func (p *Processor) processItem(ctx context.Context, version string, item model.CorpusItem) *outcome {
	o := &outcome{itemID: item.ID}

	// Re-check the halt poll before spending anything on this item. An
	// aborted outcome pins the checkpoint, so the item is retried on
	// resume.
	if p.halt != nil && p.halt() {
		o.aborted = true
		return o
	}

	var correction string
	for attempt := 0; attempt <= p.cfg.MaxReprocess; attempt++ {
		problems, err := p.attemptItem(ctx, version, item, correction, o)
		if err != nil {
			p.classifyFailure(ctx, o, err, attempt+1)
			return o
		}
		if len(problems) == 0 {
			if attempt > 0 {
				o.recovered = true
			}
			return o
		}

		// Well-formed response, invalid content. Adjust the prompt and
		// try again; the changed payload bypasses the cache.
		correction = "\nPrevious attempt was rejected: " + problems[0] + ". Correct this."
		if attempt == p.cfg.MaxReprocess {
			o.failure = &store.ItemFailure{
				ItemID: item.ID, Stage: p.stage, Version: version,
				Kind:     "domain_validation",
				Reason:   (&model.DomainValidationFailure{ItemID: item.ID, Problems: problems}).Error(),
				Attempts: attempt + 1,
			}
		}
	}
	return o
}

// attemptItem makes one model call for the item and parses + checks the
// result. Returns domain problems (retryable via reprompt) or a call
// error (terminal for this item).
func (p *Processor) attemptItem(ctx context.Context, version string, item model.CorpusItem, correction string, o *outcome) ([]string, error) {
	var req llm.Request
	switch p.stage {
	case model.StageTemporal:
		req = p.builder.BuildTemporal(item)
	case model.StageSemantic:
		temporal, err := p.store.GetTemporal(ctx, item.ID, version)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("item %d: %w", item.ID, model.ErrMissingDependency)
		}
		if err != nil {
			return nil, err
		}
		req, err = p.builder.BuildSemantic(item, &temporal)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown stage %q", p.stage)
	}
	if correction != "" {
		req.Payload += correction
	}

	callStart := time.Now()
	resp, err := p.client.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}
	o.cost += resp.CostUSD
	o.tokens += int64(resp.PromptTokens + resp.CompletionTokens)

	switch p.stage {
	case model.StageTemporal:
		assignment, problems, err := parseTemporal(resp.Content, item.ID, version)
		if err != nil {
			return nil, &model.PermanentCallFailure{Reason: "unparseable temporal response", Err: err}
		}
		if len(problems) > 0 {
			return problems, nil
		}
		assignment.LLMModel = resp.Model
		assignment.CostUSD = resp.CostUSD
		assignment.Duration = time.Since(callStart)
		o.temporal = assignment
	case model.StageSemantic:
		tags, problems, err := parseSemantic(resp.Content, item.ID, version)
		if err != nil {
			return nil, &model.PermanentCallFailure{Reason: "unparseable semantic response", Err: err}
		}
		if len(problems) > 0 {
			return problems, nil
		}
		tags.LLMModel = resp.Model
		tags.CostUSD = resp.CostUSD
		tags.Duration = time.Since(callStart)
		o.semantic = tags
	}
	return nil, nil
}

// classifyFailure turns a call error into either an aborted outcome
// (cancellation: the item is retried on resume) or a recorded failure.
func (p *Processor) classifyFailure(ctx context.Context, o *outcome, err error, attempts int) {
	if errors.Is(err, context.Canceled) || (ctx.Err() != nil && !model.IsPermanent(err) && !model.IsTransient(err)) {
		o.aborted = true
		return
	}

	kind := "permanent_call"
	switch {
	case errors.Is(err, model.ErrMissingDependency):
		kind = "missing_dependency"
	case model.IsTransient(err):
		kind = "transient_exhausted"
	}
	o.failure = &store.ItemFailure{
		ItemID: o.itemID, Stage: p.stage,
		Kind: kind, Reason: err.Error(), Attempts: attempts,
	}
}

// commitOutcomes persists the batch in checkpoint-interval blocks. The
// marker advances only across the contiguous ascending prefix of
// terminal items; aborted items pin it.
func (p *Processor) commitOutcomes(ctx context.Context, version string, marker model.CheckpointMarker, outcomes []*outcome, report *Report) (model.CheckpointMarker, error) {
	// Completed work is committed even when cancellation arrived while
	// the batch was in flight; halting loses nothing already paid for.
	commitCtx := context.WithoutCancel(ctx)

	advance := true
	for start := 0; start < len(outcomes); start += p.cfg.CheckpointInterval {
		end := start + p.cfg.CheckpointInterval
		if end > len(outcomes) {
			end = len(outcomes)
		}
		block := outcomes[start:end]

		var temporals []model.TemporalAssignment
		var semantics []model.SemanticTags
		var failures []store.ItemFailure

		next := marker
		for _, o := range block {
			switch {
			case o.temporal != nil:
				temporals = append(temporals, *o.temporal)
			case o.semantic != nil:
				semantics = append(semantics, *o.semantic)
			case o.failure != nil:
				f := *o.failure
				f.Version = version
				failures = append(failures, f)
			}

			if o.aborted {
				advance = false
			}
			if advance && !o.aborted {
				next.LastItemID = o.itemID
			}
			if o.temporal != nil || o.semantic != nil {
				next.TotalProcessed++
				report.Succeeded++
				if o.recovered {
					report.Recovered++
				}
			}
			if o.failure != nil {
				report.FailedPermanent++
			}
			next.CostUSD += o.cost
			next.TokensUsed += o.tokens
			report.CostUSD += o.cost
		}

		var err error
		switch p.stage {
		case model.StageTemporal:
			err = p.store.CommitTemporalBlock(commitCtx, temporals, failures, next)
		case model.StageSemantic:
			err = p.store.CommitSemanticBlock(commitCtx, semantics, failures, next)
		}
		if err != nil {
			return marker, fmt.Errorf("commit block: %w", err)
		}
		marker = next
	}
	return marker, nil
}
