package core

import (
	"fmt"
	"strings"
)

// Grade is a coarse ordinal bucket derived from a match score, S best
// through E worst.
type Grade string

const (
	GradeS Grade = "S"
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeE Grade = "E"
)

var gradeRanks = map[Grade]int{
	GradeS: 5,
	GradeA: 4,
	GradeB: 3,
	GradeC: 2,
	GradeD: 1,
	GradeE: 0,
}

// ParseGrade converts a user-supplied string into a Grade.
func ParseGrade(s string) (Grade, error) {
	g := Grade(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := gradeRanks[g]; !ok {
		return "", fmt.Errorf("%w: unknown grade %q", ErrInvalidArgument, s)
	}
	return g, nil
}

// Rank returns the ordinal position of the grade, higher is better.
func (g Grade) Rank() int {
	return gradeRanks[g]
}

// AtLeast reports whether g is equal to or better than other.
func (g Grade) AtLeast(other Grade) bool {
	return g.Rank() >= other.Rank()
}

// Threshold is one row of the grading table: scores at or above MinScore
// earn Grade unless a higher row matched first.
type Threshold struct {
	MinScore float64 `mapstructure:"min-score"`
	Grade    Grade   `mapstructure:"grade"`
}

// DefaultThresholds returns the built-in grading table.
func DefaultThresholds() []Threshold {
	return []Threshold{
		{MinScore: 90, Grade: GradeS},
		{MinScore: 80, Grade: GradeA},
		{MinScore: 70, Grade: GradeB},
		{MinScore: 55, Grade: GradeC},
		{MinScore: 40, Grade: GradeD},
		{MinScore: 0, Grade: GradeE},
	}
}

// Grader maps scores to grades through an ordered threshold table checked
// from the highest minimum down, first match wins.
type Grader struct {
	thresholds []Threshold
}

// NewGrader validates the table: strictly descending minimums, known grades,
// and a final catch-all row at zero so the function stays total.
func NewGrader(thresholds []Threshold) (*Grader, error) {
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("%w: grading table is empty", ErrInvalidArgument)
	}

	prev := 101.0
	for i, t := range thresholds {
		if _, ok := gradeRanks[t.Grade]; !ok {
			return nil, fmt.Errorf("%w: unknown grade %q in grading table", ErrInvalidArgument, t.Grade)
		}
		if t.MinScore >= prev {
			return nil, fmt.Errorf("%w: grading table minimums must be strictly descending (row %d)", ErrInvalidArgument, i)
		}
		prev = t.MinScore
	}

	if thresholds[len(thresholds)-1].MinScore != 0 {
		return nil, fmt.Errorf("%w: grading table must end with a catch-all row at min-score 0", ErrInvalidArgument)
	}

	table := make([]Threshold, len(thresholds))
	copy(table, thresholds)

	return &Grader{thresholds: table}, nil
}

// MustDefaultGrader builds a grader from the built-in table.
func MustDefaultGrader() *Grader {
	g, err := NewGrader(DefaultThresholds())
	if err != nil {
		panic(err)
	}
	return g
}

// Grade maps a score to its bucket. Out-of-range input is clamped before
// lookup, so the function is total and never errors.
func (g *Grader) Grade(score float64) Grade {
	score = ClampScore(score)
	for _, t := range g.thresholds {
		if score >= t.MinScore {
			return t.Grade
		}
	}
	// Unreachable with a validated table, the catch-all row matches 0.
	return g.thresholds[len(g.thresholds)-1].Grade
}

// ClampScore bounds a score to [0, 100].
func ClampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
