package validate

import (
	"context"
	"fmt"

	"github.com/mawsuah/tahqiq/internal/anchor"
	"github.com/mawsuah/tahqiq/internal/model"
)

// buildPrecedence derives the anchor ordering graph from dated anchors:
// a precedes b when a's window ends no later than b's begins. The
// transitive closure is small (anchor sets are tens of entries) so it is
// materialized up front.
func buildPrecedence(set *anchor.Set) map[string]map[string]bool {
	ids := set.IDs()
	direct := make(map[string]map[string]bool, len(ids))
	for _, aid := range ids {
		a, _ := set.Get(aid)
		if a.AHEnd == nil {
			continue
		}
		for _, bid := range ids {
			if aid == bid {
				continue
			}
			b, _ := set.Get(bid)
			if b.AHStart != nil && *a.AHEnd <= *b.AHStart {
				if direct[aid] == nil {
					direct[aid] = make(map[string]bool)
				}
				direct[aid][bid] = true
			}
		}
	}

	closure := make(map[string]map[string]bool, len(ids))
	for _, id := range ids {
		reach := make(map[string]bool)
		stack := []string{id}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for next := range direct[cur] {
				if !reach[next] {
					reach[next] = true
					stack = append(stack, next)
				}
			}
		}
		closure[id] = reach
	}
	return closure
}

// validateTemporal checks each assignment's anchor references, bounds,
// and ordering constraints.
func (v *Validator) validateTemporal(ctx context.Context, version string, emit EmitFunc) error {
	return v.store.EachTemporal(ctx, version, func(t model.TemporalAssignment) error {
		return emit(newOutcome(t.ItemID, version, model.CategoryTemporal, v.temporalIssues(t)))
	})
}

func (v *Validator) temporalIssues(t model.TemporalAssignment) []model.Issue {
	var issues []model.Issue

	for _, id := range append(append([]string{}, t.AnchorBefore...), t.AnchorAfter...) {
		if !v.anchors.Has(id) {
			issues = append(issues, model.Issue{
				Type:        "unresolved_anchor",
				Severity:    model.SeverityCritical,
				Description: fmt.Sprintf("anchor %s is not in the reference set", id),
				Field:       "anchor_before/anchor_after",
				Actual:      id,
			})
		}
	}

	if t.EarliestAH != nil && t.LatestAH != nil && *t.EarliestAH > *t.LatestAH {
		issues = append(issues, model.Issue{
			Type:        "inverted_window",
			Severity:    model.SeverityHigh,
			Description: "earliest_ah exceeds latest_ah",
			Field:       "earliest_ah",
			Actual:      fmt.Sprintf("%g > %g", *t.EarliestAH, *t.LatestAH),
		})
	}

	// An item declared both before and after the same anchor contradicts
	// itself outright.
	after := make(map[string]bool, len(t.AnchorAfter))
	for _, id := range t.AnchorAfter {
		after[id] = true
	}
	for _, id := range t.AnchorBefore {
		if after[id] {
			issues = append(issues, model.Issue{
				Type:        "anchor_contradiction",
				Severity:    model.SeverityHigh,
				Description: fmt.Sprintf("item declared both before and after anchor %s", id),
				Actual:      id,
			})
		}
	}

	// Transitive cycle: before-anchor b preceding after-anchor a on the
	// reference timeline places the item both before b and after a while
	// b <= a, which closes a cycle through the item.
	for _, bef := range t.AnchorBefore {
		for _, aft := range t.AnchorAfter {
			if bef == aft || !v.anchors.Has(bef) || !v.anchors.Has(aft) {
				continue
			}
			if v.precedes[bef][aft] {
				issues = append(issues, model.Issue{
					Type:     "ordering_cycle",
					Severity: model.SeverityHigh,
					Description: fmt.Sprintf(
						"anchor_before %s precedes anchor_after %s on the reference timeline", bef, aft),
					Expected: fmt.Sprintf("%s after %s", bef, aft),
					Actual:   fmt.Sprintf("%s before %s", bef, aft),
				})
			}
		}
	}

	return issues
}

// Soft ceilings on posterior confidence per evidence strength. Exceeding
// one is a warning signal, never a hard failure.
var confidenceCeilings = map[model.EvidenceType]float64{
	model.EvidenceSpeculative:     0.5,
	model.EvidenceContextualOrder: 0.7,
	model.EvidenceSirahAlignment:  0.85,
}

// validateConsistency cross-checks confidence against evidence strength.
func (v *Validator) validateConsistency(ctx context.Context, version string, emit EmitFunc) error {
	return v.store.EachTemporal(ctx, version, func(t model.TemporalAssignment) error {
		var issues []model.Issue
		if ceiling, ok := confidenceCeilings[t.EvidenceType]; ok && t.Confidence > ceiling {
			issues = append(issues, model.Issue{
				Type:     "confidence_evidence_mismatch",
				Severity: model.SeverityLow,
				Description: fmt.Sprintf("posterior confidence %.2f is high for %s evidence",
					t.Confidence, t.EvidenceType),
				Field:    "posterior_confidence",
				Expected: fmt.Sprintf("<= %.2f", ceiling),
				Actual:   fmt.Sprintf("%.2f", t.Confidence),
			})
		}
		return emit(newOutcome(t.ItemID, version, model.CategoryConsistency, issues))
	})
}
