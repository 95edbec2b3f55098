// Package anchor holds the fixed historical reference points used to
// bound and validate temporal assignments. The set is loaded once at
// startup, validated, and read-only afterwards.
package anchor

import (
	"fmt"
	"sort"
	"strings"
)

// Anchor is one reference point on the timeline. Anchors form a
// hierarchy: depth-0 entries are eras, deeper entries narrow them.
type Anchor struct {
	EventID      string   `yaml:"event_id" json:"event_id"`
	ParentID     string   `yaml:"parent_event_id,omitempty" json:"parent_event_id,omitempty"`
	Depth        int      `yaml:"depth" json:"depth"`
	EraCategory  string   `yaml:"era_category,omitempty" json:"era_category,omitempty"`
	AHStart      *float64 `yaml:"ah_start,omitempty" json:"ah_start,omitempty"`
	AHEnd        *float64 `yaml:"ah_end,omitempty" json:"ah_end,omitempty"`
	Name         string   `yaml:"name" json:"name"`
	Location     string   `yaml:"location,omitempty" json:"location,omitempty"`
	Significance string   `yaml:"significance,omitempty" json:"significance,omitempty"`
}

// Set is the validated, immutable anchor reference set.
type Set struct {
	anchors map[string]Anchor
	ordered []string // Event ids in load order after sorting
}

// NewSet validates the anchors and builds the set. Validation rejects
// duplicate ids, dangling parents, non-root entries without a parent,
// depth mismatches, and cycles in the parent hierarchy.
func NewSet(anchors []Anchor) (*Set, error) {
	byID := make(map[string]Anchor, len(anchors))
	for _, a := range anchors {
		if a.EventID == "" {
			return nil, fmt.Errorf("anchor with empty event_id")
		}
		if _, dup := byID[a.EventID]; dup {
			return nil, fmt.Errorf("duplicate anchor id %s", a.EventID)
		}
		byID[a.EventID] = a
	}

	for _, a := range byID {
		if a.Depth == 0 {
			if a.ParentID != "" {
				return nil, fmt.Errorf("root anchor %s declares parent %s", a.EventID, a.ParentID)
			}
			continue
		}
		if a.ParentID == "" {
			return nil, fmt.Errorf("non-root anchor %s has no parent", a.EventID)
		}
		parent, ok := byID[a.ParentID]
		if !ok {
			return nil, fmt.Errorf("anchor %s references unknown parent %s", a.EventID, a.ParentID)
		}
		if parent.Depth != a.Depth-1 {
			return nil, fmt.Errorf("anchor %s depth %d under parent %s depth %d", a.EventID, a.Depth, parent.EventID, parent.Depth)
		}
	}

	if err := checkAcyclic(byID); err != nil {
		return nil, err
	}

	ordered := make([]string, 0, len(byID))
	for id := range byID {
		ordered = append(ordered, id)
	}
	sort.Strings(ordered)

	return &Set{anchors: byID, ordered: ordered}, nil
}

// checkAcyclic walks parent chains; a chain longer than the set size
// means a cycle.
func checkAcyclic(byID map[string]Anchor) error {
	for id := range byID {
		seen := map[string]bool{}
		cur := id
		for cur != "" {
			if seen[cur] {
				return fmt.Errorf("cycle in anchor hierarchy at %s", cur)
			}
			seen[cur] = true
			cur = byID[cur].ParentID
		}
	}
	return nil
}

// Get returns the anchor for id.
func (s *Set) Get(id string) (Anchor, bool) {
	a, ok := s.anchors[id]
	return a, ok
}

// Has reports whether id names a known anchor.
func (s *Set) Has(id string) bool {
	_, ok := s.anchors[id]
	return ok
}

// Len returns the number of anchors.
func (s *Set) Len() int { return len(s.anchors) }

// IDs returns all anchor ids in deterministic (sorted) order.
func (s *Set) IDs() []string {
	out := make([]string, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// Render produces the deterministic prompt-context block listing every
// anchor. Identical sets always render byte-identically so cached
// responses stay reproducible across runs.
func (s *Set) Render() string {
	var b strings.Builder
	b.WriteString("Timeline anchors (id | depth | AH range | name):\n")
	for _, id := range s.ordered {
		a := s.anchors[id]
		b.WriteString("- ")
		b.WriteString(a.EventID)
		fmt.Fprintf(&b, " | %d | ", a.Depth)
		switch {
		case a.AHStart != nil && a.AHEnd != nil:
			fmt.Fprintf(&b, "%g..%g", *a.AHStart, *a.AHEnd)
		case a.AHStart != nil:
			fmt.Fprintf(&b, "%g..", *a.AHStart)
		default:
			b.WriteString("undated")
		}
		b.WriteString(" | ")
		b.WriteString(a.Name)
		if a.Significance != "" {
			b.WriteString(": ")
			b.WriteString(a.Significance)
		}
		b.WriteString("\n")
	}
	return b.String()
}
