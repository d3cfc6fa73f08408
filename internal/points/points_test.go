package points

import (
	"errors"
	"testing"
)

func TestPoints(t *testing.T) {
	tests := []struct {
		name    string
		subject GradedSubject
		want    int
	}{
		{"H1", GradedSubject{Level: LevelHigher, Grade: 1}, 100},
		{"H4", GradedSubject{Level: LevelHigher, Grade: 4}, 66},
		{"H8", GradedSubject{Level: LevelHigher, Grade: 8}, 0},
		{"O1", GradedSubject{Level: LevelOrdinary, Grade: 1}, 56},
		{"O6", GradedSubject{Level: LevelOrdinary, Grade: 6}, 12},
		{"O7", GradedSubject{Level: LevelOrdinary, Grade: 7}, 0},
		{"O8", GradedSubject{Level: LevelOrdinary, Grade: 8}, 0},
		{"maths H1", GradedSubject{Level: LevelHigher, Grade: 1, Special: SpecialMaths}, 125},
		{"maths H6", GradedSubject{Level: LevelHigher, Grade: 6, Special: SpecialMaths}, 46 + 25},
		{"maths H7 no bonus", GradedSubject{Level: LevelHigher, Grade: 7, Special: SpecialMaths}, 37},
		{"maths O1 no bonus", GradedSubject{Level: LevelOrdinary, Grade: 1, Special: SpecialMaths}, 56},
		{"LCVP distinction", GradedSubject{Special: SpecialLCVP, Tier: LCVPDistinction}, 66},
		{"LCVP merit", GradedSubject{Special: SpecialLCVP, Tier: LCVPMerit}, 46},
		{"LCVP pass", GradedSubject{Special: SpecialLCVP, Tier: LCVPPass}, 28},
		{"LCVP none", GradedSubject{Special: SpecialLCVP, Tier: LCVPNone}, 0},
		{"LCVP empty tier", GradedSubject{Special: SpecialLCVP}, 0},
		{"disabled", GradedSubject{Level: LevelHigher, Grade: 1, Disabled: true}, 0},
		{"disabled skips validation", GradedSubject{Grade: 42, Disabled: true}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Points(tt.subject)
			if err != nil {
				t.Fatalf("Points() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Points() = %d, want %d", got, tt.want)
			}
			again, _ := Points(tt.subject)
			if again != got {
				t.Errorf("Points() not idempotent: %d then %d", got, again)
			}
		})
	}
}

func TestPointsValidation(t *testing.T) {
	tests := []struct {
		name      string
		subject   GradedSubject
		wantField string
	}{
		{"grade zero", GradedSubject{Name: "Art", Level: LevelHigher, Grade: 0}, "grade"},
		{"grade nine", GradedSubject{Name: "Art", Level: LevelOrdinary, Grade: 9}, "grade"},
		{"unknown level", GradedSubject{Name: "Art", Level: "F", Grade: 1}, "level"},
		{"unknown tier", GradedSubject{Name: "LCVP", Special: SpecialLCVP, Tier: "Honours"}, "tier"},
		{"unknown special", GradedSubject{Name: "Art", Level: LevelHigher, Grade: 1, Special: "music"}, "special"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Points(tt.subject)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ve.Field, tt.wantField)
			}
		})
	}
}

func TestTotalTopSix(t *testing.T) {
	subjects := []GradedSubject{
		{Name: "English", Level: LevelHigher, Grade: 2},                        // 88
		{Name: "Irish", Level: LevelOrdinary, Grade: 1},                        // 56
		{Name: "Maths", Level: LevelHigher, Grade: 3, Special: SpecialMaths},   // 102
		{Name: "Physics", Level: LevelHigher, Grade: 1},                        // 100
		{Name: "Chemistry", Level: LevelHigher, Grade: 5},                      // 56
		{Name: "French", Level: LevelOrdinary, Grade: 3},                       // 37
		{Name: "Art", Level: LevelHigher, Grade: 4},                            // 66
		{Name: "LCVP", Special: SpecialLCVP, Tier: LCVPPass},                   // 28
	}

	res, err := Total(subjects)
	if err != nil {
		t.Fatalf("Total() error = %v", err)
	}
	want := 102 + 100 + 88 + 66 + 56 + 56
	if res.Total != want {
		t.Errorf("Total = %d, want %d", res.Total, want)
	}
	if len(res.Ranked) != len(subjects) {
		t.Fatalf("ranked %d subjects, want %d", len(res.Ranked), len(subjects))
	}

	// Irish and Chemistry tie on 56; Irish comes first in the input.
	if res.Ranked[4].Subject.Name != "Irish" || res.Ranked[5].Subject.Name != "Chemistry" {
		t.Errorf("tie order = %s, %s; want Irish, Chemistry", res.Ranked[4].Subject.Name, res.Ranked[5].Subject.Name)
	}
	for i, r := range res.Ranked {
		if r.Counted != (i < CountedSubjects) {
			t.Errorf("ranked[%d] (%s) Counted = %v", i, r.Subject.Name, r.Counted)
		}
	}
}

func TestTotalExcludesDisabled(t *testing.T) {
	subjects := []GradedSubject{
		{Name: "A", Level: LevelHigher, Grade: 1, Disabled: true}, // would be the best
		{Name: "B", Level: LevelHigher, Grade: 2},
		{Name: "C", Level: LevelHigher, Grade: 3},
		{Name: "D", Level: LevelHigher, Grade: 4},
		{Name: "E", Level: LevelHigher, Grade: 5},
		{Name: "F", Level: LevelHigher, Grade: 6},
		{Name: "G", Level: LevelHigher, Grade: 7},
	}

	res, err := Total(subjects)
	if err != nil {
		t.Fatalf("Total() error = %v", err)
	}
	want := 88 + 77 + 66 + 56 + 46 + 37
	if res.Total != want {
		t.Errorf("Total = %d, want %d", res.Total, want)
	}
	for _, r := range res.Ranked {
		if r.Subject.Name == "A" {
			t.Error("disabled subject appears in ranking")
		}
	}
}

func TestTotalFewerThanSix(t *testing.T) {
	res, err := Total([]GradedSubject{
		{Name: "A", Level: LevelHigher, Grade: 1},
		{Name: "B", Level: LevelOrdinary, Grade: 1},
	})
	if err != nil {
		t.Fatalf("Total() error = %v", err)
	}
	if res.Total != 156 {
		t.Errorf("Total = %d, want 156", res.Total)
	}

	empty, err := Total(nil)
	if err != nil || empty.Total != 0 || len(empty.Ranked) != 0 {
		t.Errorf("Total(nil) = %+v, %v", empty, err)
	}
}

func TestTotalPropagatesValidation(t *testing.T) {
	_, err := Total([]GradedSubject{
		{Name: "A", Level: LevelHigher, Grade: 1},
		{Name: "B", Level: LevelHigher, Grade: 11},
	})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Subject != "B" {
		t.Fatalf("expected ValidationError for B, got %v", err)
	}
}

func TestDefaultSubjects(t *testing.T) {
	res, err := Total(DefaultSubjects())
	if err != nil {
		t.Fatalf("Total(DefaultSubjects()) error = %v", err)
	}
	if res.Total == 0 {
		t.Error("default subjects should score above zero")
	}
}
