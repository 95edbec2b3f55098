package model

import "time"

// LinkType classifies a directed relation between two corpus items.
type LinkType string

const (
	LinkAbrogationCandidate LinkType = "abrogation_candidate"
	LinkApparentTension     LinkType = "apparent_tension"
	LinkThematicCluster     LinkType = "thematic_cluster"
	LinkPedagogicalSequence LinkType = "pedagogical_sequence"
	LinkCorroboration       LinkType = "corroboration"
)

func (l LinkType) Valid() bool {
	switch l {
	case LinkAbrogationCandidate, LinkApparentTension, LinkThematicCluster,
		LinkPedagogicalSequence, LinkCorroboration:
		return true
	}
	return false
}

// CrossLink is a directed, optionally bidirectional edge between two
// corpus items, produced by the cross-linking stage downstream of the
// temporal and semantic stages.
type CrossLink struct {
	SourceID      int64    `json:"source_id"`
	TargetID      int64    `json:"target_id"`
	Version       string   `json:"version"`
	Type          LinkType `json:"link_type"`
	Subtype       string   `json:"subtype,omitempty"`
	Bidirectional bool     `json:"bidirectional"`
	Confidence    float64  `json:"confidence"`
	Justification string   `json:"justification,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Normalize orders the endpoints of a bidirectional link so duplicate
// pairs collapse to one row. Directed links are returned unchanged.
func (c CrossLink) Normalize() CrossLink {
	if !c.Bidirectional || c.SourceID <= c.TargetID {
		return c
	}
	c.SourceID, c.TargetID = c.TargetID, c.SourceID
	return c
}

// CheckInvariants verifies link shape: distinct endpoints, known type,
// confidence in range.
func (c CrossLink) CheckInvariants() []string {
	var problems []string
	if c.SourceID == c.TargetID {
		problems = append(problems, "source and target are the same item")
	}
	if !c.Type.Valid() {
		problems = append(problems, "link_type "+string(c.Type)+" not in closed vocabulary")
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		problems = append(problems, "confidence outside [0,1]")
	}
	return problems
}
