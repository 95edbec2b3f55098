// Package validate runs post-hoc consistency checks over already-written
// enrichment data. Validation is observational and append-only: it reads
// temporal assignments and semantic tags, never mutates them, and emits
// one ValidationOutcome per (item, category).
package validate

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mawsuah/tahqiq/internal/anchor"
	"github.com/mawsuah/tahqiq/internal/model"
	"github.com/mawsuah/tahqiq/internal/store"
)

// EmitFunc receives outcomes as they are produced. Returning an error
// stops the run.
type EmitFunc func(model.ValidationOutcome) error

// Validator checks enrichment output for a version against the anchor
// reference set and the closed vocabularies.
type Validator struct {
	store   *store.Store
	anchors *anchor.Set

	// precedes[a][b] is true when anchor a ends no later than anchor b
	// starts, directly or transitively. Built once per validator.
	precedes map[string]map[string]bool
}

// New builds a validator over the given store and anchor set.
func New(st *store.Store, anchors *anchor.Set) *Validator {
	return &Validator{
		store:    st,
		anchors:  anchors,
		precedes: buildPrecedence(anchors),
	}
}

// Validate streams outcomes for one category. Results are produced
// lazily as the underlying rows are scanned; large corpora never need
// all outcomes in memory at once.
func (v *Validator) Validate(ctx context.Context, version string, category model.ValidationCategory, emit EmitFunc) error {
	switch category {
	case model.CategoryTemporal:
		return v.validateTemporal(ctx, version, emit)
	case model.CategorySemantic:
		return v.validateSemantic(ctx, version, emit)
	case model.CategoryConsistency:
		return v.validateConsistency(ctx, version, emit)
	case model.CategoryOverall:
		return v.validateOverall(ctx, version, emit)
	}
	return fmt.Errorf("unknown validation category %q", category)
}

// Summary aggregates one run's statuses per category.
type Summary struct {
	Version string
	Counts  map[model.ValidationCategory]map[model.ValidationStatus]int64
	Failed  int64
}

// Run executes every category for the version and appends the outcomes
// to the store in blocks. The three per-row categories run concurrently;
// overall runs after them since its pass rate depends on their checks.
func (v *Validator) Run(ctx context.Context, version string) (*Summary, error) {
	summary := &Summary{
		Version: version,
		Counts:  make(map[model.ValidationCategory]map[model.ValidationStatus]int64),
	}

	perRow := []model.ValidationCategory{
		model.CategoryTemporal, model.CategorySemantic, model.CategoryConsistency,
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, category := range perRow {
		category := category
		g.Go(func() error {
			return v.runCategory(gctx, version, category)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := v.runCategory(ctx, version, model.CategoryOverall); err != nil {
		return nil, err
	}

	counts, err := v.store.ValidationCounts(ctx, version)
	if err != nil {
		return nil, err
	}
	summary.Counts = counts
	for _, byStatus := range counts {
		summary.Failed += byStatus[model.StatusFail]
	}
	return summary, nil
}

// appendBlockSize bounds how many outcomes are buffered before a store
// write.
const appendBlockSize = 200

func (v *Validator) runCategory(ctx context.Context, version string, category model.ValidationCategory) error {
	var block []model.ValidationOutcome
	flush := func() error {
		if len(block) == 0 {
			return nil
		}
		if err := v.store.AppendValidation(ctx, block); err != nil {
			return fmt.Errorf("append %s outcomes: %w", category, err)
		}
		block = block[:0]
		return nil
	}

	err := v.Validate(ctx, version, category, func(o model.ValidationOutcome) error {
		block = append(block, o)
		if len(block) >= appendBlockSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	return flush()
}

// outcome assembles one record with status derived from the collected
// issues: any fail-grade issue fails the record, otherwise any issue at
// all downgrades it to a warning.
func newOutcome(itemID int64, version string, category model.ValidationCategory, issues []model.Issue) model.ValidationOutcome {
	status := model.StatusPass
	for _, issue := range issues {
		switch issue.Severity {
		case model.SeverityHigh, model.SeverityCritical:
			status = model.StatusFail
		default:
			if status == model.StatusPass {
				status = model.StatusWarning
			}
		}
	}
	return model.ValidationOutcome{
		ItemID:      itemID,
		Version:     version,
		Category:    category,
		Status:      status,
		Issues:      issues,
		ValidatedAt: time.Now().UTC(),
	}
}
