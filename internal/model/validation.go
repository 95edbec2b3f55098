package model

import "time"

// ValidationStatus is the outcome of one validation check.
type ValidationStatus string

const (
	StatusPass    ValidationStatus = "pass"
	StatusWarning ValidationStatus = "warning"
	StatusFail    ValidationStatus = "fail"
)

// ValidationCategory names the family of checks a result belongs to.
type ValidationCategory string

const (
	CategoryTemporal    ValidationCategory = "temporal"
	CategorySemantic    ValidationCategory = "semantic"
	CategoryConsistency ValidationCategory = "consistency"
	CategoryOverall     ValidationCategory = "overall"
)

func (c ValidationCategory) Valid() bool {
	switch c {
	case CategoryTemporal, CategorySemantic, CategoryConsistency, CategoryOverall:
		return true
	}
	return false
}

// IssueSeverity grades an individual validation issue.
type IssueSeverity string

const (
	SeverityLow      IssueSeverity = "low"
	SeverityMedium   IssueSeverity = "medium"
	SeverityHigh     IssueSeverity = "high"
	SeverityCritical IssueSeverity = "critical"
)

// Issue describes one problem found during validation.
type Issue struct {
	Type        string        `json:"issue_type"`
	Severity    IssueSeverity `json:"severity"`
	Description string        `json:"description"`
	Field       string        `json:"field,omitempty"`
	Expected    string        `json:"expected,omitempty"`
	Actual      string        `json:"actual,omitempty"`
}

// ValidationOutcome is one append-only record per (item, version,
// category). Validation never mutates the enrichment rows it inspects.
type ValidationOutcome struct {
	ItemID   int64              `json:"item_id"`
	Version  string             `json:"version"`
	Category ValidationCategory `json:"category"`
	Status   ValidationStatus   `json:"status"`
	Issues   []Issue            `json:"issues,omitempty"`

	// Derived scores, populated on the overall record.
	QualityScore         float64 `json:"quality_score,omitempty"`
	TemporalConfidence   float64 `json:"temporal_confidence,omitempty"`
	SemanticCompleteness float64 `json:"semantic_completeness,omitempty"`
	PassRate             float64 `json:"validation_pass_rate,omitempty"`

	ValidatedAt time.Time `json:"validated_at,omitempty"`
}

// Quality score weights. overall = 0.35*temporal_confidence +
// 0.25*evidence_strength + 0.25*pass_rate + 0.15*semantic_completeness.
const (
	WeightTemporalConfidence   = 0.35
	WeightEvidenceStrength     = 0.25
	WeightPassRate             = 0.25
	WeightSemanticCompleteness = 0.15
)

// OverallQuality combines the four normalized component scores into the
// weighted overall score.
func OverallQuality(temporalConfidence, evidenceStrength, passRate, semanticCompleteness float64) float64 {
	return WeightTemporalConfidence*temporalConfidence +
		WeightEvidenceStrength*evidenceStrength +
		WeightPassRate*passRate +
		WeightSemanticCompleteness*semanticCompleteness
}
