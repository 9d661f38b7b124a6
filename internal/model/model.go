package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleTeacher is a teacher user role.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a login account. ProfileID links students and teachers
// to their Student or Teacher record.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	ProfileID    string    `json:"profileId,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

// Subject is one of the fixed graded subjects.
type Subject string

const (
	SubjectTamil   Subject = "tamil"
	SubjectEnglish Subject = "english"
	SubjectMaths   Subject = "maths"
	SubjectScience Subject = "science"
	SubjectSocial  Subject = "social"
)

// Subjects lists every graded subject in report order.
var Subjects = []Subject{SubjectTamil, SubjectEnglish, SubjectMaths, SubjectScience, SubjectSocial}

// MaxSubjectMark is the highest mark a single subject can receive.
const MaxSubjectMark = 100

// MaxTotalMarks is the highest possible total across all subjects.
const MaxTotalMarks = MaxSubjectMark * 5

// Title returns the display name used on result sheets.
func (s Subject) Title() string {
	switch s {
	case SubjectTamil:
		return "Tamil"
	case SubjectEnglish:
		return "English"
	case SubjectMaths:
		return "Mathematics"
	case SubjectScience:
		return "Science"
	case SubjectSocial:
		return "Social Science"
	}
	return string(s)
}

// Marks maps each subject to its score.
type Marks map[Subject]int

// Status is the pass/fail outcome of a marked student.
type Status string

const (
	StatusPass     Status = "Pass"
	StatusFail     Status = "Fail"
	StatusUnmarked Status = "Unmarked"
)

// GradeResult holds the values derived from a complete set of marks.
type GradeResult struct {
	TotalMarks int     `json:"totalMarks"`
	Percentage float64 `json:"percentage"`
	Grade      string  `json:"grade"`
	Status     Status  `json:"status"`
}

// Student is a roster entry. The derived fields are only written through
// ApplyGrade and ClearGrade so they always agree with Marks.
type Student struct {
	ID           string  `json:"id"`
	RollNo       string  `json:"rollNo"`
	Name         string  `json:"name"`
	Class        string  `json:"class"`
	Section      string  `json:"section"`
	AcademicYear string  `json:"academicYear,omitempty"`
	Email        string  `json:"email,omitempty"`
	Marks        Marks   `json:"marks"`
	TotalMarks   int     `json:"totalMarks"`
	Percentage   float64 `json:"percentage"`
	Grade        string  `json:"grade,omitempty"`
	Status       Status  `json:"status,omitempty"`
	IsMarked     bool    `json:"isMarked"`
	Rank         *int    `json:"rank"`
}

// ApplyGrade replaces the marks and every derived field in one step.
// The rank is cleared; it is only valid after the roster is re-ranked.
func (s *Student) ApplyGrade(marks Marks, r GradeResult) {
	s.Marks = marks
	s.TotalMarks = r.TotalMarks
	s.Percentage = r.Percentage
	s.Grade = r.Grade
	s.Status = r.Status
	s.IsMarked = true
	s.Rank = nil
}

// ClearGrade returns the student to the unmarked state.
func (s *Student) ClearGrade() {
	s.Marks = nil
	s.TotalMarks = 0
	s.Percentage = 0
	s.Grade = ""
	s.Status = ""
	s.IsMarked = false
	s.Rank = nil
}

// Marked reports whether the student has a complete set of marks.
func (s Student) Marked() bool {
	return s.IsMarked && s.Marks != nil
}

// Teacher is a teacher profile.
type Teacher struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Email   string `json:"email"`
	Class   string `json:"class"`
	Phone   string `json:"phone,omitempty"`
}

// RosterStatistics summarizes a roster. It is derived on every request and never stored.
type RosterStatistics struct {
	TotalStudents     int     `json:"totalStudents"`
	StudentsWithMarks int     `json:"studentsWithMarks"`
	ClassAverage      float64 `json:"classAverage"`
	TopScore          int     `json:"topScore"`
	PassPercentage    int     `json:"passPercentage"`
	PassedStudents    int     `json:"passedStudents"`
	FailedStudents    int     `json:"failedStudents"`
}

// RankingStats is the header block of a rankings response.
type RankingStats struct {
	TotalStudents int    `json:"totalStudents"`
	Class         string `json:"class,omitempty"`
	AcademicYear  string `json:"academicYear"`
}

// Rankings is the rankings response: ranked students in rank order.
type Rankings struct {
	Stats    RankingStats `json:"stats"`
	Rankings []Student    `json:"rankings"`
}

// SubjectResult is one row of a result sheet.
type SubjectResult struct {
	Subject Subject `json:"subject"`
	Name    string  `json:"name"`
	Marks   int     `json:"marks"`
	Grade   string  `json:"grade"`
}

// ResultSummary is the footer of a result sheet.
type ResultSummary struct {
	TotalMarks int     `json:"totalMarks"`
	Percentage float64 `json:"percentage"`
	Grade      string  `json:"grade"`
	Status     Status  `json:"status"`
	Rank       *int    `json:"rank"`
}

// ResultSheet is a student's result as shown on the result page and report card.
type ResultSheet struct {
	Student  Student         `json:"student"`
	Subjects []SubjectResult `json:"subjects"`
	Summary  ResultSummary   `json:"summary"`
}

// AppConfig holds runtime parameters set via CLI flags or config file.
type AppConfig struct {
	BasePath      string // URL prefix for sub-path deployments
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
	AcademicYear  string // Shown in rankings and report cards
	DefaultClass  string // Class used when a request does not name one
	GradeScale    string // standard or classic
	AdviceVariant string // Study-suggestion tone (encouraging, standard, direct)
}
