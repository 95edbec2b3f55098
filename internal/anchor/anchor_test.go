package anchor

import (
	"strings"
	"testing"
)

func f(v float64) *float64 { return &v }

func validAnchors() []Anchor {
	return []Anchor{
		{EventID: "E1", Depth: 0, Name: "Meccan period", AHStart: f(-53), AHEnd: f(0)},
		{EventID: "E2", Depth: 0, Name: "Medinan period", AHStart: f(0), AHEnd: f(11)},
		{EventID: "E2.1", ParentID: "E2", Depth: 1, Name: "Early Medinan", AHStart: f(0), AHEnd: f(3)},
		{EventID: "EV_BADR", ParentID: "E2.1", Depth: 2, Name: "Badr", AHStart: f(2), AHEnd: f(2)},
	}
}

func TestNewSet_Valid(t *testing.T) {
	set, err := NewSet(validAnchors())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if set.Len() != 4 {
		t.Errorf("Expected 4 anchors, got %d", set.Len())
	}
	if !set.Has("EV_BADR") {
		t.Error("Expected EV_BADR to resolve")
	}
	if set.Has("EV_UHUD") {
		t.Error("Expected EV_UHUD to be unknown")
	}
}

func TestNewSet_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		anchors []Anchor
		wantErr string
	}{
		{
			name: "duplicate id",
			anchors: []Anchor{
				{EventID: "E1", Depth: 0, Name: "a"},
				{EventID: "E1", Depth: 0, Name: "b"},
			},
			wantErr: "duplicate",
		},
		{
			name: "dangling parent",
			anchors: []Anchor{
				{EventID: "E1.1", ParentID: "E1", Depth: 1, Name: "orphan"},
			},
			wantErr: "unknown parent",
		},
		{
			name: "root with parent",
			anchors: []Anchor{
				{EventID: "E1", Depth: 0, Name: "a"},
				{EventID: "E2", ParentID: "E1", Depth: 0, Name: "b"},
			},
			wantErr: "declares parent",
		},
		{
			name: "depth mismatch",
			anchors: []Anchor{
				{EventID: "E1", Depth: 0, Name: "a"},
				{EventID: "E1.1.1", ParentID: "E1", Depth: 2, Name: "skipped a level"},
			},
			wantErr: "depth",
		},
		{
			name: "empty id",
			anchors: []Anchor{
				{EventID: "", Depth: 0, Name: "nameless"},
			},
			wantErr: "empty event_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSet(tt.anchors)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestSet_RenderDeterministic(t *testing.T) {
	a, err := NewSet(validAnchors())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// Same anchors in a different input order must render identically.
	shuffled := validAnchors()
	shuffled[0], shuffled[3] = shuffled[3], shuffled[0]
	b, err := NewSet(shuffled)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if a.Render() != b.Render() {
		t.Error("Expected identical renders for identical sets")
	}
	if !strings.Contains(a.Render(), "EV_BADR") {
		t.Error("Expected render to list EV_BADR")
	}
}

func TestParse_YAML(t *testing.T) {
	data := []byte(`anchors:
  - event_id: E1
    depth: 0
    name: Meccan period
    ah_start: -53
    ah_end: 0
  - event_id: E1.1
    parent_event_id: E1
    depth: 1
    name: Early revelation
`)
	set, err := Parse(data)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if set.Len() != 2 {
		t.Errorf("Expected 2 anchors, got %d", set.Len())
	}
	a, ok := set.Get("E1")
	if !ok {
		t.Fatal("Expected E1 to resolve")
	}
	if a.AHStart == nil || *a.AHStart != -53 {
		t.Errorf("Expected ah_start -53, got %v", a.AHStart)
	}
}
