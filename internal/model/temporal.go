package model

import "time"

// Timeline bounds in AH years. The corpus timeline runs from 53 years
// before the epoch to 11 after it.
const (
	TimelineMinAH = -53.0
	TimelineMaxAH = 11.0
)

// EvidenceType classifies how strongly a temporal claim is supported,
// strongest first.
type EvidenceType string

const (
	EvidenceExplicitText    EvidenceType = "explicit_text"    // Text states the date outright
	EvidenceExplicitEvent   EvidenceType = "explicit_event"   // Text names a datable event
	EvidenceIsnadGeneration EvidenceType = "isnad_generation" // Inferred from the narrator chain
	EvidenceSirahAlignment  EvidenceType = "sirah_alignment"  // Aligned to the known biography timeline
	EvidenceContextualOrder EvidenceType = "contextual_order" // Relative ordering only
	EvidenceSpeculative     EvidenceType = "speculative"
)

// evidenceStrength maps evidence types to a normalized [0,1] strength,
// strongest first.
var evidenceStrength = map[EvidenceType]float64{
	EvidenceExplicitText:    1.0,
	EvidenceExplicitEvent:   0.9,
	EvidenceIsnadGeneration: 0.7,
	EvidenceSirahAlignment:  0.55,
	EvidenceContextualOrder: 0.35,
	EvidenceSpeculative:     0.15,
}

// Valid reports whether e is a member of the closed evidence vocabulary.
func (e EvidenceType) Valid() bool {
	_, ok := evidenceStrength[e]
	return ok
}

// Strength returns the normalized strength of the evidence type, or 0 for
// unknown values.
func (e EvidenceType) Strength() float64 {
	return evidenceStrength[e]
}

// TemporalAssignment is the temporal stage's output for one corpus item
// under one version. Assignments are append-only: reprocessing writes a
// new version, never overwrites an old one.
type TemporalAssignment struct {
	ItemID  int64  `json:"item_id"`
	Version string `json:"version"`

	EraID         string `json:"era_id"`                    // Coarse interval, e.g. "E2"
	SubEraID      string `json:"sub_era_id,omitempty"`      // Finer interval, e.g. "E2.3"
	EventWindowID string `json:"event_window_id,omitempty"` // Specific event window

	EarliestAH *float64 `json:"earliest_ah,omitempty"`
	LatestAH   *float64 `json:"latest_ah,omitempty"`

	AnchorBefore []string `json:"anchor_before,omitempty"` // Anchors this item must precede
	AnchorAfter  []string `json:"anchor_after,omitempty"`  // Anchors this item must follow

	EvidenceType EvidenceType `json:"evidence_type"`
	Confidence   float64      `json:"posterior_confidence"` // [0,1]
	Reasoning    string       `json:"reasoning"`

	// Call metadata recorded alongside each persisted assignment.
	LLMModel  string        `json:"llm_model,omitempty"`
	CostUSD   float64       `json:"llm_cost_usd,omitempty"`
	Duration  time.Duration `json:"processing_duration,omitempty"`
	CreatedAt time.Time     `json:"created_at,omitempty"`
}

// CheckInvariants verifies the structural invariants a well-formed
// assignment must satisfy regardless of anchor-set membership. Anchor
// resolution needs the loaded anchor set and belongs to the validator.
func (t TemporalAssignment) CheckInvariants() []string {
	var problems []string

	if t.EraID == "" {
		problems = append(problems, "era_id is empty")
	}
	if !t.EvidenceType.Valid() {
		problems = append(problems, "evidence_type "+string(t.EvidenceType)+" not in closed vocabulary")
	}
	if t.Confidence < 0 || t.Confidence > 1 {
		problems = append(problems, "posterior_confidence outside [0,1]")
	}
	if t.EarliestAH != nil && t.LatestAH != nil && *t.EarliestAH > *t.LatestAH {
		problems = append(problems, "earliest_ah exceeds latest_ah")
	}
	if t.EarliestAH != nil && (*t.EarliestAH < TimelineMinAH || *t.EarliestAH > TimelineMaxAH) {
		problems = append(problems, "earliest_ah outside timeline bounds")
	}
	if t.LatestAH != nil && (*t.LatestAH < TimelineMinAH || *t.LatestAH > TimelineMaxAH) {
		problems = append(problems, "latest_ah outside timeline bounds")
	}

	return problems
}
