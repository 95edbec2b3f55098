package stage

import (
	"encoding/json"
	"fmt"

	"github.com/mawsuah/tahqiq/internal/model"
)

// temporalResponse is the wire shape the temporal instructions ask for.
type temporalResponse struct {
	EraID         string   `json:"era_id"`
	SubEraID      string   `json:"sub_era_id"`
	EventWindowID string   `json:"event_window_id"`
	EarliestAH    *float64 `json:"earliest_ah"`
	LatestAH      *float64 `json:"latest_ah"`
	AnchorBefore  []string `json:"anchor_before"`
	AnchorAfter   []string `json:"anchor_after"`
	EvidenceType  string   `json:"evidence_type"`
	Confidence    float64  `json:"posterior_confidence"`
	Reasoning     string   `json:"reasoning"`
}

// parseTemporal decodes a temporal response and checks its structural
// invariants. A decode error is terminal for the call; invariant
// problems are retryable via reprompt.
func parseTemporal(content string, itemID int64, version string) (*model.TemporalAssignment, []string, error) {
	var resp temporalResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return nil, nil, fmt.Errorf("decode temporal response: %w", err)
	}

	assignment := &model.TemporalAssignment{
		ItemID:        itemID,
		Version:       version,
		EraID:         resp.EraID,
		SubEraID:      resp.SubEraID,
		EventWindowID: resp.EventWindowID,
		EarliestAH:    resp.EarliestAH,
		LatestAH:      resp.LatestAH,
		AnchorBefore:  resp.AnchorBefore,
		AnchorAfter:   resp.AnchorAfter,
		EvidenceType:  model.EvidenceType(resp.EvidenceType),
		Confidence:    resp.Confidence,
		Reasoning:     resp.Reasoning,
	}
	return assignment, assignment.CheckInvariants(), nil
}

// semanticResponse is the wire shape the semantic instructions ask for.
type semanticResponse struct {
	Speaker    string                `json:"speaker"`
	Addressee  string                `json:"addressee"`
	VerbType   string                `json:"verb_type"`
	Modality   string                `json:"modality"`
	Categories []string              `json:"categories"`
	Role       string                `json:"role"`
	AxisA      *model.AxisA          `json:"axis_a"`
	AxisB      *model.AxisB          `json:"axis_b"`
	Vectors    model.ThematicVectors `json:"vectors"`
}

// parseSemantic decodes a semantic response and checks its structural
// invariants.
func parseSemantic(content string, itemID int64, version string) (*model.SemanticTags, []string, error) {
	var resp semanticResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return nil, nil, fmt.Errorf("decode semantic response: %w", err)
	}

	tags := &model.SemanticTags{
		ItemID:     itemID,
		Version:    version,
		Speaker:    resp.Speaker,
		Addressee:  resp.Addressee,
		VerbType:   resp.VerbType,
		Modality:   model.Modality(resp.Modality),
		Categories: resp.Categories,
		Role:       model.FunctionalRole(resp.Role),
		AxisA:      resp.AxisA,
		AxisB:      resp.AxisB,
		Vectors:    resp.Vectors,
	}
	return tags, tags.CheckInvariants(), nil
}
