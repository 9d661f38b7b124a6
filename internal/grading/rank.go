package grading

import (
	"cmp"
	"maps"
	"slices"

	"github.com/pavelanni/gradebook/internal/model"
)

// RankRoster orders a roster and assigns ranks to its marked students.
//
// Every passing student is ranked above every failing student. Within each
// group students are ordered by total marks, highest first, keeping roster
// order on ties. Ranks are 1-based and contiguous with no shared ranks.
// Unmarked students follow the ranked ones in roster order with a nil rank.
//
// The input slice is not modified.
func RankRoster(roster []model.Student) []model.Student {
	var passed, failed, unmarked []model.Student
	for _, s := range roster {
		s.Marks = maps.Clone(s.Marks)
		s.Rank = nil
		switch {
		case !s.Marked():
			unmarked = append(unmarked, s)
		case s.Status == model.StatusPass:
			passed = append(passed, s)
		default:
			failed = append(failed, s)
		}
	}

	byTotalDesc := func(a, b model.Student) int {
		return cmp.Compare(b.TotalMarks, a.TotalMarks)
	}
	slices.SortStableFunc(passed, byTotalDesc)
	slices.SortStableFunc(failed, byTotalDesc)

	out := make([]model.Student, 0, len(roster))
	out = append(out, passed...)
	out = append(out, failed...)
	for i := range out {
		rank := i + 1
		out[i].Rank = &rank
	}
	return append(out, unmarked...)
}

// Ranked returns the students of a ranked roster that hold a rank.
func Ranked(ranked []model.Student) []model.Student {
	out := make([]model.Student, 0, len(ranked))
	for _, s := range ranked {
		if s.Rank != nil {
			out = append(out, s)
		}
	}
	return out
}
