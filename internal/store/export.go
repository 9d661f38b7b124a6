package store

import (
	"fmt"
	"time"

	"github.com/pavelanni/gradebook/internal/grading"
	"github.com/pavelanni/gradebook/internal/model"
)

// ExportRankings builds an export of a class roster in rank order with its
// statistics. An empty class exports every student as one roster.
func (s *Store) ExportRankings(class, academicYear, gradeScale string) (model.RankingExport, error) {
	roster, err := s.ListStudents(class)
	if err != nil {
		return model.RankingExport{}, fmt.Errorf("list students: %w", err)
	}

	ranked := grading.RankRoster(roster)
	export := model.RankingExport{
		Class:        class,
		AcademicYear: academicYear,
		GradeScale:   gradeScale,
		GeneratedAt:  time.Now().UTC(),
		Statistics:   grading.ComputeStatistics(roster),
		Rankings:     []model.Student{},
		Unmarked:     []model.Student{},
	}
	for _, st := range ranked {
		if st.Rank != nil {
			export.Rankings = append(export.Rankings, st)
		} else {
			export.Unmarked = append(export.Unmarked, st)
		}
	}
	return export, nil
}
