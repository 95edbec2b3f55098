package validate

import (
	"context"
	"fmt"

	"github.com/mawsuah/tahqiq/internal/model"
)

// validateSemantic checks vocabulary membership and axis population for
// each set of semantic tags.
func (v *Validator) validateSemantic(ctx context.Context, version string, emit EmitFunc) error {
	return v.store.EachSemantic(ctx, version, func(s model.SemanticTags) error {
		return emit(newOutcome(s.ItemID, version, model.CategorySemantic, semanticIssues(s)))
	})
}

func semanticIssues(s model.SemanticTags) []model.Issue {
	var issues []model.Issue

	if len(s.Categories) == 0 {
		issues = append(issues, model.Issue{
			Type:        "empty_categories",
			Severity:    model.SeverityHigh,
			Description: "category set is empty",
			Field:       "categories",
		})
	}
	if !s.Role.Valid() {
		issues = append(issues, model.Issue{
			Type:        "vocabulary_violation",
			Severity:    model.SeverityHigh,
			Description: "functional role not in closed vocabulary",
			Field:       "role",
			Actual:      string(s.Role),
		})
	}
	if s.Modality != "" && !s.Modality.Valid() {
		issues = append(issues, model.Issue{
			Type:        "vocabulary_violation",
			Severity:    model.SeverityHigh,
			Description: "modality not in closed vocabulary",
			Field:       "modality",
			Actual:      string(s.Modality),
		})
	}

	checkAxis := func(name string, strata []model.StratumLevel) {
		if !model.AxisPopulated(strata) {
			issues = append(issues, model.Issue{
				Type:        "empty_axis",
				Severity:    model.SeverityMedium,
				Description: "no stratum populated on " + name,
				Field:       name,
			})
			return
		}
		for _, sl := range strata {
			st := sl.Stratum
			if st == nil {
				continue
			}
			field := name + "." + sl.Level
			if st.Proposition == "" {
				issues = append(issues, model.Issue{
					Type:        "missing_proposition",
					Severity:    model.SeverityHigh,
					Description: fmt.Sprintf("%s populated without a proposition", field),
					Field:       field,
				})
			}
			if st.Scope != "" && !st.Scope.Valid() {
				issues = append(issues, vocabularyIssue(field+".scope", string(st.Scope)))
			}
			if st.Certainty != "" && !st.Certainty.Valid() {
				issues = append(issues, vocabularyIssue(field+".certainty", string(st.Certainty)))
			}
			if st.Conditionality != "" && !st.Conditionality.Valid() {
				issues = append(issues, vocabularyIssue(field+".conditionality", string(st.Conditionality)))
			}
		}
	}
	if s.AxisA != nil {
		checkAxis("axis_a", s.AxisA.Strata())
	} else {
		issues = append(issues, model.Issue{
			Type:        "empty_axis",
			Severity:    model.SeverityMedium,
			Description: "axis_a is absent",
			Field:       "axis_a",
		})
	}
	if s.AxisB != nil {
		checkAxis("axis_b", s.AxisB.Strata())
	} else {
		issues = append(issues, model.Issue{
			Type:        "empty_axis",
			Severity:    model.SeverityMedium,
			Description: "axis_b is absent",
			Field:       "axis_b",
		})
	}

	return issues
}

func vocabularyIssue(field, actual string) model.Issue {
	return model.Issue{
		Type:        "vocabulary_violation",
		Severity:    model.SeverityHigh,
		Description: field + " not in closed vocabulary",
		Field:       field,
		Actual:      actual,
	}
}
