// Package roster loads student and teacher files into the store.
package roster

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/gradebook/internal/grading"
	"github.com/pavelanni/gradebook/internal/model"
	"github.com/pavelanni/gradebook/internal/store"
)

// ErrUnchanged is returned when a file with the same content was already imported.
var ErrUnchanged = errors.New("file already imported")

// Options controls how imported entries are completed.
type Options struct {
	// AcademicYear fills entries that leave it empty.
	AcademicYear string
	// Force re-imports a file even if its hash is unchanged.
	Force bool
}

// Result summarizes an import.
type Result struct {
	Students int `json:"students"`
	Marked   int `json:"marked"`
	Users    int `json:"users"`
}

// ParseStudents accepts a bare JSON array of students or an object with a
// "students" array.
func ParseStudents(data []byte) ([]model.StudentImport, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty roster file")
	}
	if trimmed[0] == '[' {
		var list []model.StudentImport
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("parse roster: %w", err)
		}
		return list, nil
	}
	var file model.RosterFile
	if err := json.Unmarshal(trimmed, &file); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	return file.Students, nil
}

// entryMarks converts file marks. A missing map, an empty map or a map of
// only nulls means the student has not been graded yet.
func entryMarks(raw map[string]*int) (model.Marks, error) {
	graded := false
	for _, v := range raw {
		if v != nil {
			graded = true
			break
		}
	}
	if !graded {
		return nil, nil
	}
	return grading.MarksFromInput(raw)
}

// BuildStudents validates and grades roster entries. The first invalid entry
// aborts the whole roster.
func BuildStudents(entries []model.StudentImport, calc grading.Calculator, opts Options) ([]model.Student, error) {
	seen := make(map[string]bool, len(entries))
	out := make([]model.Student, 0, len(entries))
	for i, e := range entries {
		if e.ID == "" || e.Name == "" || e.Class == "" {
			return nil, fmt.Errorf("entry %d: id, name and class are required", i)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("entry %d: duplicate student id %q", i, e.ID)
		}
		seen[e.ID] = true

		st := model.Student{
			ID:           e.ID,
			RollNo:       e.RollNo,
			Name:         e.Name,
			Class:        e.Class,
			Section:      e.Section,
			AcademicYear: e.AcademicYear,
			Email:        e.Email,
		}
		if st.AcademicYear == "" {
			st.AcademicYear = opts.AcademicYear
		}

		marks, err := entryMarks(e.Marks)
		if err != nil {
			return nil, fmt.Errorf("student %s: %w", e.ID, err)
		}
		if marks != nil {
			result, err := calc.ComputeGrade(marks)
			if err != nil {
				return nil, fmt.Errorf("student %s: %w", e.ID, err)
			}
			st.ApplyGrade(marks, result)
		}
		out = append(out, st)
	}
	return out, nil
}

// ImportStudents imports a roster file identified by name. The file hash is
// recorded so the same content is not imported twice unless opts.Force is set.
func ImportStudents(s *store.Store, calc grading.Calculator, name string, data []byte, opts Options) (Result, error) {
	hash := Checksum(data)
	if !opts.Force {
		stored, err := s.GetImportedFileHash(name)
		if err != nil {
			return Result{}, fmt.Errorf("check import status for %s: %w", name, err)
		}
		if stored == hash {
			slog.Info("roster file unchanged, skipping", "path", name)
			return Result{}, ErrUnchanged
		}
	}

	entries, err := ParseStudents(data)
	if err != nil {
		return Result{}, err
	}
	students, err := BuildStudents(entries, calc, opts)
	if err != nil {
		return Result{}, err
	}
	if err := s.ImportRoster(students); err != nil {
		return Result{}, fmt.Errorf("import roster: %w", err)
	}

	res := Result{Students: len(students)}
	for _, st := range students {
		if st.Marked() {
			res.Marked++
		}
	}
	for _, e := range entries {
		created, err := ensureUser(s, e.Username, e.Password, e.Email, e.Name, model.UserRoleStudent, e.ID)
		if err != nil {
			return res, err
		}
		if created {
			res.Users++
		}
	}

	if err := s.SetImportedFileHash(name, hash); err != nil {
		return res, fmt.Errorf("record import for %s: %w", name, err)
	}
	slog.Info("imported roster", "path", name, "students", res.Students, "marked", res.Marked, "users", res.Users)
	return res, nil
}

// ImportTeachers imports a JSON array of teacher profiles with optional logins.
func ImportTeachers(s *store.Store, name string, data []byte, opts Options) (Result, error) {
	hash := Checksum(data)
	if !opts.Force {
		stored, err := s.GetImportedFileHash(name)
		if err != nil {
			return Result{}, fmt.Errorf("check import status for %s: %w", name, err)
		}
		if stored == hash {
			slog.Info("teacher file unchanged, skipping", "path", name)
			return Result{}, ErrUnchanged
		}
	}

	var entries []model.TeacherImport
	if err := json.Unmarshal(data, &entries); err != nil {
		return Result{}, fmt.Errorf("parse teachers: %w", err)
	}

	var res Result
	for i, e := range entries {
		if e.ID == "" || e.Name == "" {
			return res, fmt.Errorf("entry %d: id and name are required", i)
		}
		if err := s.UpsertTeacher(e.Teacher); err != nil {
			return res, fmt.Errorf("insert teacher %s: %w", e.ID, err)
		}
		created, err := ensureUser(s, e.Username, e.Password, e.Email, e.Name, model.UserRoleTeacher, e.ID)
		if err != nil {
			return res, err
		}
		if created {
			res.Users++
		}
	}

	if err := s.SetImportedFileHash(name, hash); err != nil {
		return res, fmt.Errorf("record import for %s: %w", name, err)
	}
	slog.Info("imported teachers", "path", name, "count", len(entries), "users", res.Users)
	return res, nil
}

// ensureUser creates a login for a profile when the entry carries credentials
// and no user with that username exists yet.
func ensureUser(s *store.Store, username, password, email, displayName string, role model.UserRole, profileID string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	existing, err := s.GetUserByLogin(username)
	if err != nil {
		return false, fmt.Errorf("look up user %s: %w", username, err)
	}
	if existing != nil {
		return false, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash password for %s: %w", username, err)
	}
	if _, err := s.CreateUser(model.User{
		Username:     username,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Role:         role,
		ProfileID:    profileID,
		Active:       true,
	}); err != nil {
		return false, fmt.Errorf("create user %s: %w", username, err)
	}
	return true, nil
}

// Checksum returns the hex SHA-256 of data.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
