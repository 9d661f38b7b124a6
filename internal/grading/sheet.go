package grading

import "github.com/pavelanni/gradebook/internal/model"

// ResultSheet lays out a student's marks in subject order with a per-subject
// grade. An unmarked student gets zero rows and an Unmarked summary.
func (c Calculator) ResultSheet(st model.Student) model.ResultSheet {
	sheet := model.ResultSheet{
		Student:  st,
		Subjects: make([]model.SubjectResult, 0, len(model.Subjects)),
	}
	if !st.Marked() {
		sheet.Summary.Status = model.StatusUnmarked
		return sheet
	}
	for _, sub := range model.Subjects {
		m := st.Marks[sub]
		sheet.Subjects = append(sheet.Subjects, model.SubjectResult{
			Subject: sub,
			Name:    sub.Title(),
			Marks:   m,
			Grade:   c.SubjectGrade(m),
		})
	}
	sheet.Summary = model.ResultSummary{
		TotalMarks: st.TotalMarks,
		Percentage: st.Percentage,
		Grade:      st.Grade,
		Status:     st.Status,
		Rank:       st.Rank,
	}
	return sheet
}
