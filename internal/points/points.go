// Package points computes CAO points for Leaving Certificate results.
package points

import (
	"fmt"
	"sort"
)

// Level is the grading tier of a subject result.
type Level string

const (
	LevelHigher   Level = "H"
	LevelOrdinary Level = "O"
)

// Special marks subjects with non-standard scoring.
type Special string

const (
	SpecialNone  Special = ""
	SpecialMaths Special = "maths"
	SpecialLCVP  Special = "LCVP"
)

// LCVPTier is a Link Modules result.
type LCVPTier string

const (
	LCVPNone        LCVPTier = "None"
	LCVPPass        LCVPTier = "Pass"
	LCVPMerit       LCVPTier = "Merit"
	LCVPDistinction LCVPTier = "Distinction"
)

// MathsBonus is added to Higher Level Mathematics grades H1 to H6.
const MathsBonus = 25

// CountedSubjects is how many of the best results make up the total.
const CountedSubjects = 6

var (
	higher   = [8]int{100, 88, 77, 66, 56, 46, 37, 0}
	ordinary = [8]int{56, 46, 37, 28, 20, 12, 0, 0}
	lcvp     = map[LCVPTier]int{
		LCVPNone:        0,
		LCVPPass:        28,
		LCVPMerit:       46,
		LCVPDistinction: 66,
	}
)

// GradedSubject is one row of the points calculator.
type GradedSubject struct {
	Name     string   `json:"name"`
	Level    Level    `json:"level,omitempty"`
	Grade    int      `json:"grade,omitempty"` // 1..8, unused for LCVP
	Tier     LCVPTier `json:"tier,omitempty"`  // LCVP only
	Special  Special  `json:"special,omitempty"`
	Disabled bool     `json:"disabled,omitempty"`
}

// ValidationError reports a malformed calculator row.
type ValidationError struct {
	Subject string
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s for %q: %s", e.Field, e.Subject, e.Reason)
}

// Points returns the CAO points for a single subject. Disabled subjects score
// zero without further validation.
func Points(s GradedSubject) (int, error) {
	if s.Disabled {
		return 0, nil
	}

	switch s.Special {
	case SpecialLCVP:
		tier := s.Tier
		if tier == "" {
			tier = LCVPNone
		}
		p, ok := lcvp[tier]
		if !ok {
			return 0, &ValidationError{Subject: s.Name, Field: "tier", Reason: fmt.Sprintf("unknown LCVP tier %q", s.Tier)}
		}
		return p, nil
	case SpecialNone, SpecialMaths:
	default:
		return 0, &ValidationError{Subject: s.Name, Field: "special", Reason: fmt.Sprintf("unknown value %q", s.Special)}
	}

	if s.Grade < 1 || s.Grade > 8 {
		return 0, &ValidationError{Subject: s.Name, Field: "grade", Reason: fmt.Sprintf("%d is outside 1-8", s.Grade)}
	}

	var base int
	switch s.Level {
	case LevelHigher:
		base = higher[s.Grade-1]
	case LevelOrdinary:
		base = ordinary[s.Grade-1]
	default:
		return 0, &ValidationError{Subject: s.Name, Field: "level", Reason: fmt.Sprintf("unknown level %q", s.Level)}
	}

	if s.Special == SpecialMaths && s.Level == LevelHigher && s.Grade <= 6 {
		base += MathsBonus
	}
	return base, nil
}

// RankedSubject is a subject with its points and whether it counts toward the total.
type RankedSubject struct {
	Subject GradedSubject `json:"subject"`
	Points  int           `json:"points"`
	Counted bool          `json:"counted"`
}

// Result is the outcome of a points calculation.
type Result struct {
	Total  int             `json:"total"`
	Ranked []RankedSubject `json:"ranked"`
}

// Total scores every enabled subject, ranks them by points (ties keep input
// order) and sums the best six. Disabled subjects are left out of the ranking.
func Total(subjects []GradedSubject) (Result, error) {
	ranked := make([]RankedSubject, 0, len(subjects))
	for _, s := range subjects {
		if s.Disabled {
			continue
		}
		p, err := Points(s)
		if err != nil {
			return Result{}, err
		}
		ranked = append(ranked, RankedSubject{Subject: s, Points: p})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Points > ranked[j].Points
	})

	res := Result{Ranked: ranked}
	for i := range ranked {
		if i >= CountedSubjects {
			break
		}
		ranked[i].Counted = true
		res.Total += ranked[i].Points
	}
	return res, nil
}

// DefaultSubjects returns the calculator rows shown to a new user.
func DefaultSubjects() []GradedSubject {
	return []GradedSubject{
		{Name: "English", Level: LevelHigher, Grade: 3},
		{Name: "Irish", Level: LevelHigher, Grade: 4},
		{Name: "Mathematics", Level: LevelHigher, Grade: 4, Special: SpecialMaths},
		{Name: "Biology", Level: LevelHigher, Grade: 3},
		{Name: "Chemistry", Level: LevelHigher, Grade: 4},
		{Name: "French", Level: LevelOrdinary, Grade: 2},
		{Name: "Geography", Level: LevelHigher, Grade: 3},
		{Name: "LCVP", Special: SpecialLCVP, Tier: LCVPNone, Disabled: true},
	}
}
