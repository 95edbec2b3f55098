package prompt

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mawsuah/tahqiq/internal/anchor"
	"github.com/mawsuah/tahqiq/internal/model"
)

func testAnchors(t *testing.T) *anchor.Set {
	t.Helper()
	start, end := -53.0, 11.0
	set, err := anchor.NewSet([]anchor.Anchor{
		{EventID: "E1", Depth: 0, Name: "Meccan period", AHStart: &start, AHEnd: &end},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return set
}

func testItem() model.CorpusItem {
	return model.CorpusItem{
		ID:            7,
		GroupID:       1,
		ItemInGroupID: 7,
		PrimaryText:   "primary passage text",
		SecondaryText: "translation text",
		NarratorChain: "A > B > C",
		Markers:       []string{"after the migration"},
	}
}

func TestBuildTemporal_Deterministic(t *testing.T) {
	b := NewBuilder(testAnchors(t), 6000, 1500)

	r1 := b.BuildTemporal(testItem())
	r2 := b.BuildTemporal(testItem())

	if r1.System != r2.System || r1.Payload != r2.Payload {
		t.Error("Expected byte-identical requests for identical inputs")
	}
	if !strings.Contains(r1.System, "Meccan period") {
		t.Error("Expected anchor context in the system block")
	}
	if !strings.Contains(r1.Payload, "primary passage text") {
		t.Error("Expected primary text in the payload")
	}
	if !strings.Contains(r1.Payload, "after the migration") {
		t.Error("Expected markers in the payload")
	}
	if r1.EstTokens <= 0 {
		t.Error("Expected a positive token estimate")
	}
	if r1.Truncated {
		t.Error("Expected no truncation for a small item")
	}
}

func TestBuildTemporal_TruncationPolicy(t *testing.T) {
	// A tiny prompt budget forces truncation of everything but the
	// primary text.
	b := NewBuilder(testAnchors(t), 1, 1500)

	item := testItem()
	item.SecondaryText = strings.Repeat("translation ", 500)
	item.NarratorChain = strings.Repeat("narrator > ", 100)

	req := b.BuildTemporal(item)
	if !req.Truncated {
		t.Fatal("Expected the request to be marked truncated")
	}
	if !strings.Contains(req.Payload, item.PrimaryText) {
		t.Error("Expected primary text to survive truncation whole")
	}
	if strings.Contains(req.Payload, item.SecondaryText) {
		t.Error("Expected secondary text to be cut")
	}
}

func TestBuildTemporal_TruncationKeepsRunesWhole(t *testing.T) {
	item := testItem()
	item.PrimaryText = "إنما الأعمال بالنيات"
	item.SecondaryText = strings.Repeat("الأعمال بالنيات ولكل امرئ ما نوى ", 40)
	item.NarratorChain = strings.Repeat("عمر بن الخطاب > ", 20)

	// Sweep the budget so the cut point lands at many byte offsets of the
	// Arabic text. No cut may ever split a multi-byte rune.
	anchors := testAnchors(t)
	cuts := 0
	for tokens := 1; tokens <= 600; tokens += 7 {
		req := NewBuilder(anchors, tokens, 1500).BuildTemporal(item)
		if !utf8.ValidString(req.Payload) {
			t.Fatalf("Budget %d: payload contains a split rune", tokens)
		}
		if !strings.Contains(req.Payload, item.PrimaryText) {
			t.Errorf("Budget %d: expected primary text kept whole", tokens)
		}
		if req.Truncated {
			cuts++
		}
	}
	if cuts == 0 {
		t.Fatal("Expected at least one truncated request in the sweep")
	}
}

func TestBuildSemantic_RequiresTemporal(t *testing.T) {
	b := NewBuilder(testAnchors(t), 6000, 1500)

	_, err := b.BuildSemantic(testItem(), nil)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !errors.Is(err, model.ErrMissingDependency) {
		t.Errorf("Expected ErrMissingDependency, got %v", err)
	}
}

func TestBuildSemantic_CarriesTemporalContext(t *testing.T) {
	b := NewBuilder(testAnchors(t), 6000, 1500)

	earliest, latest := 2.0, 5.0
	temporal := &model.TemporalAssignment{
		ItemID:     7,
		EraID:      "E2",
		SubEraID:   "E2.1",
		EarliestAH: &earliest,
		LatestAH:   &latest,
	}

	req, err := b.BuildSemantic(testItem(), temporal)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(req.Payload, "era E2") {
		t.Error("Expected era in the semantic payload")
	}
	if !strings.Contains(req.Payload, "E2.1") {
		t.Error("Expected sub-era in the semantic payload")
	}
	if !strings.Contains(req.Payload, "AH 2 to 5") {
		t.Error("Expected AH window in the semantic payload")
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("Expected 0 for empty string, got %d", got)
	}
	if got := EstimateTokens("abcd"); got != 1 {
		t.Errorf("Expected 1 for 4 chars, got %d", got)
	}
	if got := EstimateTokens("abcde"); got != 2 {
		t.Errorf("Expected 2 for 5 chars, got %d", got)
	}
}
