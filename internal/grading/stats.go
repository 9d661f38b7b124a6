package grading

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/pavelanni/gradebook/internal/model"
)

// ComputeStatistics summarizes a roster. Only marked students count towards
// the average, top score and pass percentage; an empty or fully unmarked
// roster yields zeros.
//
// The class average is the mean of the marked students' percentages,
// rounded to one decimal.
func ComputeStatistics(roster []model.Student) model.RosterStatistics {
	st := model.RosterStatistics{TotalStudents: len(roster)}

	var percentages, totals stats.Float64Data
	for _, s := range roster {
		if !s.Marked() {
			continue
		}
		percentages = append(percentages, s.Percentage)
		totals = append(totals, float64(s.TotalMarks))
		if s.Status == model.StatusPass {
			st.PassedStudents++
		} else {
			st.FailedStudents++
		}
	}

	st.StudentsWithMarks = len(percentages)
	if st.StudentsWithMarks == 0 {
		return st
	}

	if avg, err := stats.Mean(percentages); err == nil {
		st.ClassAverage = round1(avg)
	}
	if top, err := stats.Max(totals); err == nil {
		st.TopScore = int(top)
	}
	st.PassPercentage = int(math.Round(float64(st.PassedStudents) / float64(st.StudentsWithMarks) * 100))
	return st
}
