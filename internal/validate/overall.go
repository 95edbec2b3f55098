package validate

import (
	"context"
	"errors"

	"github.com/mawsuah/tahqiq/internal/model"
	"github.com/mawsuah/tahqiq/internal/store"
)

// validateOverall derives the weighted quality score per item from the
// temporal assignment, the semantic tags, and the per-category check
// results recomputed in place.
func (v *Validator) validateOverall(ctx context.Context, version string, emit EmitFunc) error {
	return v.store.EachTemporal(ctx, version, func(t model.TemporalAssignment) error {
		var issues []model.Issue

		tags, err := v.store.GetSemantic(ctx, t.ItemID, version)
		haveSemantic := true
		if errors.Is(err, store.ErrNotFound) {
			haveSemantic = false
			issues = append(issues, model.Issue{
				Type:        "missing_semantic",
				Severity:    model.SeverityMedium,
				Description: "no semantic tags recorded for this version",
			})
		} else if err != nil {
			return err
		}

		passRate := v.passRate(t, tags, haveSemantic)
		completeness := 0.0
		if haveSemantic {
			completeness = semanticCompleteness(tags)
		}

		o := newOutcome(t.ItemID, version, model.CategoryOverall, issues)
		o.TemporalConfidence = t.Confidence
		o.SemanticCompleteness = completeness
		o.PassRate = passRate
		o.QualityScore = model.OverallQuality(
			t.Confidence, t.EvidenceType.Strength(), passRate, completeness)
		return emit(o)
	})
}

// passRate averages the three per-row categories for one item, with a
// warning counting half.
func (v *Validator) passRate(t model.TemporalAssignment, tags model.SemanticTags, haveSemantic bool) float64 {
	score := func(issues []model.Issue) float64 {
		out := 1.0
		for _, issue := range issues {
			switch issue.Severity {
			case model.SeverityHigh, model.SeverityCritical:
				return 0
			default:
				out = 0.5
			}
		}
		return out
	}

	total := score(v.temporalIssues(t))
	if haveSemantic {
		total += score(semanticIssues(tags))
	}
	if ceiling, ok := confidenceCeilings[t.EvidenceType]; !ok || t.Confidence <= ceiling {
		total += 1
	} else {
		total += 0.5
	}
	return total / 3
}

// semanticCompleteness is the populated fraction of the tag layers.
func semanticCompleteness(s model.SemanticTags) float64 {
	populated := 0
	if s.Speaker != "" {
		populated++
	}
	if s.Addressee != "" {
		populated++
	}
	if s.VerbType != "" {
		populated++
	}
	if s.Modality != "" {
		populated++
	}
	if len(s.Categories) > 0 {
		populated++
	}
	if s.AxisA != nil && model.AxisPopulated(s.AxisA.Strata()) {
		populated++
	}
	if s.AxisB != nil && model.AxisPopulated(s.AxisB.Strata()) {
		populated++
	}
	if vectorsPopulated(s.Vectors) {
		populated++
	}
	return float64(populated) / 8
}

func vectorsPopulated(v model.ThematicVectors) bool {
	return len(v.DivineAttributes) > 0 || len(v.FacultiesAddressed) > 0 ||
		v.MaqamHal != "" || v.LegalCause != "" || v.Objective != "" ||
		len(v.Values) > 0 || len(v.Vices) > 0
}
