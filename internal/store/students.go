package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pavelanni/gradebook/internal/grading"
	"github.com/pavelanni/gradebook/internal/model"
)

// ErrStudentNotFound is returned by writes that target a missing student.
var ErrStudentNotFound = errors.New("student not found")

const studentColumns = `id, roll_no, name, class_name, section, academic_year, email,
	marks, total_marks, percentage, grade, status, is_marked, class_rank`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (model.Student, error) {
	var (
		st    model.Student
		marks sql.NullString
		rank  sql.NullInt64
	)
	err := row.Scan(&st.ID, &st.RollNo, &st.Name, &st.Class, &st.Section, &st.AcademicYear, &st.Email,
		&marks, &st.TotalMarks, &st.Percentage, &st.Grade, &st.Status, &st.IsMarked, &rank)
	if err != nil {
		return st, err
	}
	if marks.Valid && marks.String != "" {
		if err := json.Unmarshal([]byte(marks.String), &st.Marks); err != nil {
			return st, fmt.Errorf("decode marks for %s: %w", st.ID, err)
		}
	}
	if rank.Valid {
		r := int(rank.Int64)
		st.Rank = &r
	}
	return st, nil
}

func encodeMarks(m model.Marks) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func rankValue(r *int) sql.NullInt64 {
	if r == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*r), Valid: true}
}

// UpsertStudent stores identity fields for a student, creating the row if needed.
// Marks and derived fields are left untouched on update.
func (s *Store) UpsertStudent(st model.Student) error {
	_, err := s.db.Exec(
		`INSERT INTO students (id, roll_no, name, class_name, section, academic_year, email)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET roll_no = excluded.roll_no, name = excluded.name,
		   class_name = excluded.class_name, section = excluded.section,
		   academic_year = excluded.academic_year, email = excluded.email`,
		st.ID, st.RollNo, st.Name, st.Class, st.Section, st.AcademicYear, st.Email,
	)
	return err
}

// GetStudent returns a student by ID, or nil if not found.
func (s *Store) GetStudent(id string) (*model.Student, error) {
	return getStudent(s.db, id)
}

func getStudent(q querier, id string) (*model.Student, error) {
	st, err := scanStudent(q.QueryRow(`SELECT `+studentColumns+` FROM students WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ListStudents returns the roster of a class in roster order.
// An empty class returns every student.
func (s *Store) ListStudents(class string) ([]model.Student, error) {
	return listStudents(s.db, class)
}

func listStudents(q querier, class string) ([]model.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students`
	var args []any
	if class != "" {
		query += ` WHERE class_name = ?`
		args = append(args, class)
	}
	query += ` ORDER BY rowid`

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var students []model.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// ListClasses returns the distinct classes that have students.
func (s *Store) ListClasses() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT class_name FROM students ORDER BY class_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var classes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// StudentCount returns the number of students in the database.
func (s *Store) StudentCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM students`).Scan(&count)
	return count, err
}

// UpdateStudentProfile updates the editable profile fields of a student.
func (s *Store) UpdateStudentProfile(id, name, section, email string) error {
	res, err := s.db.Exec(
		`UPDATE students SET name = ?, section = ?, email = ? WHERE id = ?`,
		name, section, email, id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStudentNotFound
	}
	return nil
}

// SubmitMarks replaces a student's marks, recomputes the derived fields and
// re-ranks the student's whole class in one transaction. Invalid marks are
// rejected before anything is written.
func (s *Store) SubmitMarks(id string, marks model.Marks, calc grading.Calculator) (*model.Student, error) {
	result, err := calc.ComputeGrade(marks)
	if err != nil {
		return nil, err
	}
	return s.updateGrade(id, func(st *model.Student) {
		st.ApplyGrade(marks, result)
	})
}

// ClearMarks returns a student to the unmarked state and re-ranks the class.
func (s *Store) ClearMarks(id string) (*model.Student, error) {
	return s.updateGrade(id, func(st *model.Student) {
		st.ClearGrade()
	})
}

func (s *Store) updateGrade(id string, apply func(*model.Student)) (*model.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	st, err := getStudent(tx, id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrStudentNotFound
	}

	apply(st)
	if err := writeGrade(tx, *st); err != nil {
		return nil, fmt.Errorf("write grade: %w", err)
	}
	if err := rerankClass(tx, st.Class); err != nil {
		return nil, fmt.Errorf("rerank %s: %w", st.Class, err)
	}

	updated, err := getStudent(tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	slog.Info("marks updated", "student_id", id, "class", updated.Class,
		"marked", updated.IsMarked, "total", updated.TotalMarks, "status", updated.Status)
	return updated, nil
}

func writeGrade(q querier, st model.Student) error {
	marks, err := encodeMarks(st.Marks)
	if err != nil {
		return err
	}
	_, err = q.Exec(
		`UPDATE students SET marks = ?, total_marks = ?, percentage = ?, grade = ?, status = ?,
		   is_marked = ?, class_rank = ? WHERE id = ?`,
		marks, st.TotalMarks, st.Percentage, st.Grade, st.Status, st.IsMarked, rankValue(st.Rank), st.ID,
	)
	return err
}

// rerankClass ranks the full roster of a class from scratch and stores every rank.
func rerankClass(q querier, class string) error {
	roster, err := listStudents(q, class)
	if err != nil {
		return err
	}
	for _, st := range grading.RankRoster(roster) {
		if _, err := q.Exec(`UPDATE students SET class_rank = ? WHERE id = ?`, rankValue(st.Rank), st.ID); err != nil {
			return err
		}
	}
	return nil
}

// ImportRoster upserts students, then re-ranks every class it touched,
// including a class a student moved out of. Marks and derived fields are only
// written for entries that carry marks; an unmarked entry keeps whatever
// marks are already stored. Callers grade the students first.
func (s *Store) ImportRoster(students []model.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	classes := make(map[string]bool)
	for _, st := range students {
		var prevClass string
		err := tx.QueryRow(`SELECT class_name FROM students WHERE id = ?`, st.ID).Scan(&prevClass)
		switch {
		case err == nil:
			classes[prevClass] = true
		case err != sql.ErrNoRows:
			return fmt.Errorf("look up student %s: %w", st.ID, err)
		}

		_, err = tx.Exec(
			`INSERT INTO students (id, roll_no, name, class_name, section, academic_year, email)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET roll_no = excluded.roll_no, name = excluded.name,
			   class_name = excluded.class_name, section = excluded.section,
			   academic_year = excluded.academic_year, email = excluded.email`,
			st.ID, st.RollNo, st.Name, st.Class, st.Section, st.AcademicYear, st.Email,
		)
		if err != nil {
			return fmt.Errorf("insert student %s: %w", st.ID, err)
		}
		if st.Marked() {
			if err := writeGrade(tx, st); err != nil {
				return fmt.Errorf("write grade for %s: %w", st.ID, err)
			}
		}
		classes[st.Class] = true
	}
	for class := range classes {
		if err := rerankClass(tx, class); err != nil {
			return fmt.Errorf("rerank %s: %w", class, err)
		}
	}
	return tx.Commit()
}
