package model

import "testing"

func TestSemanticTags_InvariantProblemsAreOrdered(t *testing.T) {
	tags := SemanticTags{
		Categories: []string{"prayer"},
		Role:       RoleNormative,
		AxisA: &AxisA{
			Zahir:  &Stratum{},
			Haqiqa: &Stratum{},
		},
		AxisB: &AxisB{
			Amal:   &Stratum{},
			Marifa: &Stratum{},
		},
	}

	want := []string{
		"axis_a.zahir populated without a proposition",
		"axis_a.haqiqa populated without a proposition",
		"axis_b.amal populated without a proposition",
		"axis_b.marifa populated without a proposition",
	}

	// The reprocess prompt quotes the first problem, so the order has to
	// be stable run to run.
	for i := 0; i < 20; i++ {
		problems := tags.CheckInvariants()
		if len(problems) != len(want) {
			t.Fatalf("Expected %d problems, got %v", len(want), problems)
		}
		for j := range want {
			if problems[j] != want[j] {
				t.Fatalf("Expected problem %d to be %q, got %q", j, want[j], problems[j])
			}
		}
	}
}

func TestAxisPopulated(t *testing.T) {
	empty := AxisA{}
	if AxisPopulated(empty.Strata()) {
		t.Error("Expected an empty axis to report unpopulated")
	}

	one := AxisB{Niyya: &Stratum{Proposition: "p"}}
	if !AxisPopulated(one.Strata()) {
		t.Error("Expected a single populated stratum to count")
	}
}
