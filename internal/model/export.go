package model

import "time"

// RankingExport is the top-level JSON structure written by the export command.
type RankingExport struct {
	Class        string           `json:"class"`
	AcademicYear string           `json:"academicYear"`
	GradeScale   string           `json:"gradeScale"`
	GeneratedAt  time.Time        `json:"generatedAt"`
	Statistics   RosterStatistics `json:"statistics"`
	Rankings     []Student        `json:"rankings"`
	Unmarked     []Student        `json:"unmarked"`
}

// RosterFile is the wrapped roster file shape: {"students": [...]}.
type RosterFile struct {
	Students []StudentImport `json:"students"`
}

// StudentImport is one student entry in a roster import file.
// Marks values may be null in the file, which means "not yet graded".
type StudentImport struct {
	ID           string          `json:"id"`
	RollNo       string          `json:"rollNo"`
	Name         string          `json:"name"`
	Class        string          `json:"class"`
	Section      string          `json:"section"`
	AcademicYear string          `json:"academicYear"`
	Email        string          `json:"email"`
	Username     string          `json:"username"`
	Password     string          `json:"password"`
	Marks        map[string]*int `json:"marks"`
}

// TeacherImport is one teacher entry in a teacher import file.
type TeacherImport struct {
	Teacher
	Username string `json:"username"`
	Password string `json:"password"`
}
