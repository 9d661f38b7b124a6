package store

import (
	"database/sql"

	"github.com/pavelanni/gradebook/internal/model"
)

// UpsertTeacher creates or replaces a teacher profile.
func (s *Store) UpsertTeacher(t model.Teacher) error {
	_, err := s.db.Exec(
		`INSERT INTO teachers (id, name, subject, email, class_name, phone)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, subject = excluded.subject,
		   email = excluded.email, class_name = excluded.class_name, phone = excluded.phone`,
		t.ID, t.Name, t.Subject, t.Email, t.Class, t.Phone,
	)
	return err
}

// GetTeacher returns a teacher by ID, or nil if not found.
func (s *Store) GetTeacher(id string) (*model.Teacher, error) {
	var t model.Teacher
	err := s.db.QueryRow(
		`SELECT id, name, subject, email, class_name, phone FROM teachers WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.Subject, &t.Email, &t.Class, &t.Phone)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTeachers returns all teachers.
func (s *Store) ListTeachers() ([]model.Teacher, error) {
	rows, err := s.db.Query(`SELECT id, name, subject, email, class_name, phone FROM teachers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var teachers []model.Teacher
	for rows.Next() {
		var t model.Teacher
		if err := rows.Scan(&t.ID, &t.Name, &t.Subject, &t.Email, &t.Class, &t.Phone); err != nil {
			return nil, err
		}
		teachers = append(teachers, t)
	}
	return teachers, rows.Err()
}

// UpdateTeacherProfile merges editable fields into a teacher profile.
// Empty values keep the stored value, as a partial update would.
func (s *Store) UpdateTeacherProfile(id string, upd model.Teacher) (*model.Teacher, error) {
	t, err := s.GetTeacher(id)
	if err != nil || t == nil {
		return nil, err
	}
	if upd.Name != "" {
		t.Name = upd.Name
	}
	if upd.Subject != "" {
		t.Subject = upd.Subject
	}
	if upd.Email != "" {
		t.Email = upd.Email
	}
	if upd.Class != "" {
		t.Class = upd.Class
	}
	if upd.Phone != "" {
		t.Phone = upd.Phone
	}
	if err := s.UpsertTeacher(*t); err != nil {
		return nil, err
	}
	return t, nil
}
