package validate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mawsuah/tahqiq/internal/anchor"
	"github.com/mawsuah/tahqiq/internal/model"
	"github.com/mawsuah/tahqiq/internal/store"
)

func f(v float64) *float64 { return &v }

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	items := []model.CorpusItem{
		{ID: 1, GroupID: 1, ItemInGroupID: 1, PrimaryText: "a"},
		{ID: 2, GroupID: 1, ItemInGroupID: 2, PrimaryText: "b"},
		{ID: 3, GroupID: 1, ItemInGroupID: 3, PrimaryText: "c"},
	}
	if _, err := s.InsertItems(context.Background(), items); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return s
}

// testAnchors is A (depth 0) with child B, plus two dated siblings where
// EARLY wholly precedes LATE.
func testAnchors(t *testing.T) *anchor.Set {
	t.Helper()
	set, err := anchor.NewSet([]anchor.Anchor{
		{EventID: "A", Depth: 0, Name: "Era", AHStart: f(0), AHEnd: f(11)},
		{EventID: "B", ParentID: "A", Depth: 1, Name: "Event", AHStart: f(2), AHEnd: f(2)},
		{EventID: "EARLY", Depth: 0, Name: "Early window", AHStart: f(-10), AHEnd: f(-5)},
		{EventID: "LATE", Depth: 0, Name: "Late window", AHStart: f(5), AHEnd: f(8)},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return set
}

func commitTemporal(t *testing.T, s *store.Store, assignments ...model.TemporalAssignment) {
	t.Helper()
	last := assignments[len(assignments)-1].ItemID
	err := s.CommitTemporalBlock(context.Background(), assignments, nil,
		model.CheckpointMarker{Stage: model.StageTemporal, Version: "v1", LastItemID: last})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}

func collect(t *testing.T, v *Validator, category model.ValidationCategory) map[int64]model.ValidationOutcome {
	t.Helper()
	out := make(map[int64]model.ValidationOutcome)
	err := v.Validate(context.Background(), "v1", category, func(o model.ValidationOutcome) error {
		out[o.ItemID] = o
		return nil
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return out
}

func TestValidator_TemporalPass(t *testing.T) {
	s := testStore(t)
	commitTemporal(t, s, model.TemporalAssignment{
		ItemID: 1, Version: "v1", EraID: "A",
		AnchorAfter: []string{"A"}, AnchorBefore: []string{"B"},
		EvidenceType: model.EvidenceExplicitEvent, Confidence: 0.8,
	})

	v := New(s, testAnchors(t))
	outcomes := collect(t, v, model.CategoryTemporal)
	if outcomes[1].Status != model.StatusPass {
		t.Errorf("Expected pass, got %s with %+v", outcomes[1].Status, outcomes[1].Issues)
	}
}

func TestValidator_AnchorContradiction(t *testing.T) {
	s := testStore(t)
	commitTemporal(t, s, model.TemporalAssignment{
		ItemID: 2, Version: "v1", EraID: "A",
		AnchorBefore: []string{"A"}, AnchorAfter: []string{"A"},
		EvidenceType: model.EvidenceContextualOrder, Confidence: 0.4,
	})

	v := New(s, testAnchors(t))
	outcomes := collect(t, v, model.CategoryTemporal)
	if outcomes[2].Status != model.StatusFail {
		t.Fatalf("Expected fail, got %s", outcomes[2].Status)
	}
	found := false
	for _, issue := range outcomes[2].Issues {
		if issue.Type == "anchor_contradiction" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected an anchor_contradiction issue, got %+v", outcomes[2].Issues)
	}
}

func TestValidator_OrderingCycle(t *testing.T) {
	s := testStore(t)
	// Declared after LATE but before EARLY, while EARLY precedes LATE on
	// the reference timeline.
	commitTemporal(t, s, model.TemporalAssignment{
		ItemID: 1, Version: "v1", EraID: "A",
		AnchorBefore: []string{"EARLY"}, AnchorAfter: []string{"LATE"},
		EvidenceType: model.EvidenceSirahAlignment, Confidence: 0.5,
	})

	v := New(s, testAnchors(t))
	outcomes := collect(t, v, model.CategoryTemporal)
	if outcomes[1].Status != model.StatusFail {
		t.Fatalf("Expected fail, got %s with %+v", outcomes[1].Status, outcomes[1].Issues)
	}
	found := false
	for _, issue := range outcomes[1].Issues {
		if issue.Type == "ordering_cycle" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected an ordering_cycle issue, got %+v", outcomes[1].Issues)
	}
}

func TestValidator_UnresolvedAnchorAndInvertedWindow(t *testing.T) {
	s := testStore(t)
	commitTemporal(t, s, model.TemporalAssignment{
		ItemID: 1, Version: "v1", EraID: "A",
		AnchorAfter:  []string{"GHOST"},
		EarliestAH:   f(9), LatestAH: f(3),
		EvidenceType: model.EvidenceSpeculative, Confidence: 0.2,
	})

	v := New(s, testAnchors(t))
	outcomes := collect(t, v, model.CategoryTemporal)
	types := make(map[string]bool)
	for _, issue := range outcomes[1].Issues {
		types[issue.Type] = true
	}
	if !types["unresolved_anchor"] || !types["inverted_window"] {
		t.Errorf("Expected unresolved_anchor and inverted_window, got %+v", outcomes[1].Issues)
	}
}

func TestValidator_ConsistencyCeilingsAreSoft(t *testing.T) {
	s := testStore(t)
	commitTemporal(t, s,
		model.TemporalAssignment{
			ItemID: 1, Version: "v1", EraID: "A",
			EvidenceType: model.EvidenceSpeculative, Confidence: 0.9,
		},
		model.TemporalAssignment{
			ItemID: 2, Version: "v1", EraID: "A",
			EvidenceType: model.EvidenceSpeculative, Confidence: 0.3,
		},
		model.TemporalAssignment{
			ItemID: 3, Version: "v1", EraID: "A",
			EvidenceType: model.EvidenceExplicitText, Confidence: 0.99,
		},
	)

	v := New(s, testAnchors(t))
	outcomes := collect(t, v, model.CategoryConsistency)

	// Overconfident speculative placement warns, never fails.
	if outcomes[1].Status != model.StatusWarning {
		t.Errorf("Expected warning for overconfident speculation, got %s", outcomes[1].Status)
	}
	if outcomes[2].Status != model.StatusPass {
		t.Errorf("Expected pass for modest speculation, got %s", outcomes[2].Status)
	}
	if outcomes[3].Status != model.StatusPass {
		t.Errorf("Expected pass for confident explicit evidence, got %s", outcomes[3].Status)
	}
}

func validTags(itemID int64) model.SemanticTags {
	return model.SemanticTags{
		ItemID: itemID, Version: "v1",
		Modality:   model.ModalityInformative,
		Categories: []string{"prayer"},
		Role:       model.RoleDescriptive,
		AxisA:      &model.AxisA{Zahir: &model.Stratum{Proposition: "p"}},
		AxisB:      &model.AxisB{Amal: &model.Stratum{Proposition: "q"}},
	}
}

func commitSemantic(t *testing.T, s *store.Store, tags ...model.SemanticTags) {
	t.Helper()
	last := tags[len(tags)-1].ItemID
	err := s.CommitSemanticBlock(context.Background(), tags, nil,
		model.CheckpointMarker{Stage: model.StageSemantic, Version: "v1", LastItemID: last})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}

func TestValidator_SemanticChecks(t *testing.T) {
	s := testStore(t)

	good := validTags(1)

	empty := validTags(2)
	empty.Categories = nil
	empty.AxisB = &model.AxisB{}

	badVocab := validTags(3)
	badVocab.Role = "Poetic"

	commitSemantic(t, s, good, empty, badVocab)

	v := New(s, testAnchors(t))
	outcomes := collect(t, v, model.CategorySemantic)

	if outcomes[1].Status != model.StatusPass {
		t.Errorf("Expected pass, got %s with %+v", outcomes[1].Status, outcomes[1].Issues)
	}
	if outcomes[2].Status != model.StatusFail {
		t.Errorf("Expected fail for empty categories, got %s", outcomes[2].Status)
	}
	types := make(map[string]bool)
	for _, issue := range outcomes[2].Issues {
		types[issue.Type] = true
	}
	if !types["empty_categories"] || !types["empty_axis"] {
		t.Errorf("Expected empty_categories and empty_axis, got %+v", outcomes[2].Issues)
	}
	if outcomes[3].Status != model.StatusFail {
		t.Errorf("Expected fail for unknown role, got %s", outcomes[3].Status)
	}
}

func TestValidator_OverallQuality(t *testing.T) {
	s := testStore(t)
	commitTemporal(t, s, model.TemporalAssignment{
		ItemID: 1, Version: "v1", EraID: "A",
		EvidenceType: model.EvidenceExplicitText, Confidence: 0.9,
	})
	commitSemantic(t, s, validTags(1))

	v := New(s, testAnchors(t))
	outcomes := collect(t, v, model.CategoryOverall)

	o, ok := outcomes[1]
	if !ok {
		t.Fatal("Expected an overall outcome for item 1")
	}
	if o.TemporalConfidence != 0.9 {
		t.Errorf("Expected temporal confidence 0.9, got %f", o.TemporalConfidence)
	}
	if o.PassRate != 1.0 {
		t.Errorf("Expected full pass rate, got %f", o.PassRate)
	}
	// Populated layers: modality, categories, and both axes.
	wantCompleteness := 4.0 / 8.0
	if o.SemanticCompleteness != wantCompleteness {
		t.Errorf("Expected completeness %f, got %f", wantCompleteness, o.SemanticCompleteness)
	}
	want := model.OverallQuality(0.9, 1.0, 1.0, wantCompleteness)
	if diff := o.QualityScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected quality %f, got %f", want, o.QualityScore)
	}
}

func TestValidator_OverallMissingSemantic(t *testing.T) {
	s := testStore(t)
	commitTemporal(t, s, model.TemporalAssignment{
		ItemID: 1, Version: "v1", EraID: "A",
		EvidenceType: model.EvidenceExplicitEvent, Confidence: 0.8,
	})

	v := New(s, testAnchors(t))
	outcomes := collect(t, v, model.CategoryOverall)

	o := outcomes[1]
	if o.SemanticCompleteness != 0 {
		t.Errorf("Expected zero completeness without tags, got %f", o.SemanticCompleteness)
	}
	found := false
	for _, issue := range o.Issues {
		if issue.Type == "missing_semantic" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a missing_semantic issue, got %+v", o.Issues)
	}
}

func TestValidator_RunAppendsAllCategories(t *testing.T) {
	s := testStore(t)
	commitTemporal(t, s, model.TemporalAssignment{
		ItemID: 1, Version: "v1", EraID: "A",
		EvidenceType: model.EvidenceExplicitText, Confidence: 0.9,
	})
	commitSemantic(t, s, validTags(1))

	v := New(s, testAnchors(t))
	summary, err := v.Run(context.Background(), "v1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if summary.Failed != 0 {
		t.Errorf("Expected no failures, got %d", summary.Failed)
	}
	for _, category := range []model.ValidationCategory{
		model.CategoryTemporal, model.CategorySemantic,
		model.CategoryConsistency, model.CategoryOverall,
	} {
		if summary.Counts[category][model.StatusPass] != 1 {
			t.Errorf("Expected 1 pass for %s, got %+v", category, summary.Counts[category])
		}
	}
}
