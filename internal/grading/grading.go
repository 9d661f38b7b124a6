// Package grading turns raw subject marks into totals, percentages, letter
// grades and pass/fail status, and ranks and summarizes class rosters.
//
// Everything here is pure: callers pass a roster in and get a new one back.
// Persistence and locking belong to the caller.
package grading

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/pavelanni/gradebook/internal/model"
)

// DefaultPassMark is the minimum percentage for a Pass.
const DefaultPassMark = 40.0

// Threshold maps a minimum percentage (inclusive) to a letter grade.
type Threshold struct {
	Min   float64
	Grade string
}

// Scale is an ordered letter-grade table. Thresholds are checked from the
// highest Min down; anything below the last threshold gets Fallback.
type Scale struct {
	Name       string
	Thresholds []Threshold
	Fallback   string
}

// StandardScale is the seven-letter scale with B+.
var StandardScale = Scale{
	Name: "standard",
	Thresholds: []Threshold{
		{Min: 90, Grade: "A+"},
		{Min: 80, Grade: "A"},
		{Min: 70, Grade: "B+"},
		{Min: 60, Grade: "B"},
		{Min: 50, Grade: "C"},
		{Min: 40, Grade: "D"},
	},
	Fallback: "F",
}

// ClassicScale is the older six-letter scale without B+.
var ClassicScale = Scale{
	Name: "classic",
	Thresholds: []Threshold{
		{Min: 90, Grade: "A+"},
		{Min: 80, Grade: "A"},
		{Min: 70, Grade: "B"},
		{Min: 60, Grade: "C"},
		{Min: 40, Grade: "D"},
	},
	Fallback: "F",
}

// ScaleByName returns a built-in scale by name.
func ScaleByName(name string) (Scale, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StandardScale.Name:
		return StandardScale, true
	case ClassicScale.Name:
		return ClassicScale, true
	}
	return Scale{}, false
}

// Letter returns the letter grade for a percentage. Boundaries are
// closed below: exactly 90.0 is an A+, 89.9 is not.
func (s Scale) Letter(percentage float64) string {
	for _, t := range s.Thresholds {
		if percentage >= t.Min {
			return t.Grade
		}
	}
	return s.Fallback
}

// Calculator computes grades against a scale and pass mark.
type Calculator struct {
	Scale    Scale
	PassMark float64
}

// New returns a Calculator for the scale with the default pass mark.
func New(scale Scale) Calculator {
	return Calculator{Scale: scale, PassMark: DefaultPassMark}
}

// Default returns a Calculator using StandardScale.
func Default() Calculator {
	return New(StandardScale)
}

// ComputeGrade validates a complete set of marks and derives the total,
// percentage, letter grade and status from it.
func (c Calculator) ComputeGrade(marks model.Marks) (model.GradeResult, error) {
	if err := ValidateMarks(marks); err != nil {
		return model.GradeResult{}, err
	}

	total := 0
	for _, subj := range model.Subjects {
		total += marks[subj]
	}
	pct := round1(float64(total) / model.MaxTotalMarks * 100)

	status := model.StatusFail
	if pct >= c.PassMark {
		status = model.StatusPass
	}
	return model.GradeResult{
		TotalMarks: total,
		Percentage: pct,
		Grade:      c.Scale.Letter(pct),
		Status:     status,
	}, nil
}

// SubjectGrade grades a single subject mark on the same scale.
func (c Calculator) SubjectGrade(mark int) string {
	return c.Scale.Letter(float64(mark))
}

// Problem classifies a ValidationError.
type Problem int

const (
	ProblemNoMarks Problem = iota
	ProblemMissing
	ProblemOutOfRange
	ProblemUnknownSubject
	ProblemDuplicateSubject
)

// ValidationError reports an incomplete or out-of-range marks map.
type ValidationError struct {
	Problem Problem
	Subject string
	Value   int
}

func (e *ValidationError) Error() string {
	switch e.Problem {
	case ProblemMissing:
		return fmt.Sprintf("missing marks for %s", e.Subject)
	case ProblemOutOfRange:
		return fmt.Sprintf("invalid marks for %s: %d is not between 0 and %d", e.Subject, e.Value, model.MaxSubjectMark)
	case ProblemUnknownSubject:
		return fmt.Sprintf("unknown subject %q", e.Subject)
	case ProblemDuplicateSubject:
		return fmt.Sprintf("duplicate marks for %s", e.Subject)
	}
	return "invalid marks data"
}

// ValidateMarks checks that marks has exactly the graded subjects, each in range.
// Subjects are checked in report order so the first problem is stable.
func ValidateMarks(marks model.Marks) error {
	if len(marks) == 0 {
		return &ValidationError{Problem: ProblemNoMarks}
	}
	for _, subj := range model.Subjects {
		v, ok := marks[subj]
		if !ok {
			return &ValidationError{Problem: ProblemMissing, Subject: string(subj)}
		}
		if v < 0 || v > model.MaxSubjectMark {
			return &ValidationError{Problem: ProblemOutOfRange, Subject: string(subj), Value: v}
		}
	}
	if len(marks) != len(model.Subjects) {
		var unknown []string
		for subj := range marks {
			if !slices.Contains(model.Subjects, subj) {
				unknown = append(unknown, string(subj))
			}
		}
		slices.Sort(unknown)
		return &ValidationError{Problem: ProblemUnknownSubject, Subject: unknown[0]}
	}
	return nil
}

// MarksFromInput converts decoded request or file marks, where a null value
// means the subject has not been graded, into Marks. Keys are matched without
// regard to case or surrounding space, so two keys naming the same subject are
// rejected. A nil map yields nil Marks.
func MarksFromInput(raw map[string]*int) (model.Marks, error) {
	if raw == nil {
		return nil, nil
	}
	marks := make(model.Marks, len(raw))
	for k, v := range raw {
		subj := model.Subject(strings.ToLower(strings.TrimSpace(k)))
		if _, dup := marks[subj]; dup {
			return nil, &ValidationError{Problem: ProblemDuplicateSubject, Subject: string(subj)}
		}
		if v == nil {
			return nil, &ValidationError{Problem: ProblemMissing, Subject: string(subj)}
		}
		marks[subj] = *v
	}
	return marks, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
