package roster

import (
	"errors"
	"testing"

	"github.com/pavelanni/gradebook/internal/grading"
	"github.com/pavelanni/gradebook/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

const wrappedRoster = `{"students": [
  {"id": "s1", "rollNo": "R01", "name": "Priya", "class": "10", "section": "A",
   "username": "priya", "password": "secret1",
   "marks": {"tamil": 85, "english": 78, "maths": 92, "science": 88, "social": 80}},
  {"id": "s2", "rollNo": "R02", "name": "Arun", "class": "10", "section": "A",
   "marks": {"tamil": 20, "english": 25, "maths": 30, "science": 20, "social": 25}},
  {"id": "s3", "rollNo": "R03", "name": "Divya", "class": "10", "section": "B",
   "marks": {"tamil": null, "english": null, "maths": null, "science": null, "social": null}}
]}`

func TestParseStudentsShapes(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    int
		wantErr bool
	}{
		{"wrapped", wrappedRoster, 3, false},
		{"bare array", `[{"id":"s1","name":"A","class":"10"}]`, 1, false},
		{"empty", "  ", 0, true},
		{"garbage", `{"students": 5}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStudents([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStudents() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestBuildStudents(t *testing.T) {
	entries, err := ParseStudents([]byte(wrappedRoster))
	if err != nil {
		t.Fatalf("ParseStudents: %v", err)
	}
	students, err := BuildStudents(entries, grading.Default(), Options{AcademicYear: "2024-2025"})
	if err != nil {
		t.Fatalf("BuildStudents: %v", err)
	}
	if students[0].TotalMarks != 423 || students[0].Grade != "A" {
		t.Errorf("s1 = %d %s, want 423 A", students[0].TotalMarks, students[0].Grade)
	}
	if students[2].Marked() {
		t.Error("all-null marks should leave the student unmarked")
	}
	if students[1].AcademicYear != "2024-2025" {
		t.Errorf("academic year = %q, want default", students[1].AcademicYear)
	}
}

func TestBuildStudentsRejectsBadEntries(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"out of range", `[{"id":"s1","name":"A","class":"10","marks":{"tamil":101,"english":1,"maths":1,"science":1,"social":1}}]`},
		{"partial marks", `[{"id":"s1","name":"A","class":"10","marks":{"tamil":50,"english":null}}]`},
		{"missing class", `[{"id":"s1","name":"A"}]`},
		{"duplicate id", `[{"id":"s1","name":"A","class":"10"},{"id":"s1","name":"B","class":"10"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := ParseStudents([]byte(tt.data))
			if err != nil {
				t.Fatalf("ParseStudents: %v", err)
			}
			if _, err := BuildStudents(entries, grading.Default(), Options{}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestImportStudents(t *testing.T) {
	s := newTestStore(t)
	calc := grading.Default()

	res, err := ImportStudents(s, calc, "students.json", []byte(wrappedRoster), Options{})
	if err != nil {
		t.Fatalf("ImportStudents: %v", err)
	}
	if res.Students != 3 || res.Marked != 2 || res.Users != 1 {
		t.Errorf("result = %+v, want 3 students, 2 marked, 1 user", res)
	}

	s1, err := s.GetStudent("s1")
	if err != nil || s1 == nil {
		t.Fatalf("GetStudent(s1) = %v, %v", s1, err)
	}
	if s1.Rank == nil || *s1.Rank != 1 {
		t.Errorf("s1 rank = %v, want 1", s1.Rank)
	}
	s2, _ := s.GetStudent("s2")
	if s2.Rank == nil || *s2.Rank != 2 {
		t.Errorf("s2 rank = %v, want 2", s2.Rank)
	}
	s3, _ := s.GetStudent("s3")
	if s3.Rank != nil {
		t.Errorf("s3 rank = %v, want nil", *s3.Rank)
	}

	u, err := s.GetUserByLogin("priya")
	if err != nil || u == nil {
		t.Fatalf("GetUserByLogin = %v, %v", u, err)
	}
	if u.ProfileID != "s1" {
		t.Errorf("profile id = %q, want s1", u.ProfileID)
	}

	if _, err := ImportStudents(s, calc, "students.json", []byte(wrappedRoster), Options{}); !errors.Is(err, ErrUnchanged) {
		t.Errorf("second import error = %v, want ErrUnchanged", err)
	}
	res, err = ImportStudents(s, calc, "students.json", []byte(wrappedRoster), Options{Force: true})
	if err != nil {
		t.Fatalf("forced import: %v", err)
	}
	if res.Users != 0 {
		t.Errorf("forced import created %d users, want 0", res.Users)
	}
}

func TestImportTeachers(t *testing.T) {
	s := newTestStore(t)
	data := []byte(`[{"id":"t1","name":"Mrs. Lakshmi","subject":"Maths","email":"lakshmi@school.test","class":"10",
		"username":"lakshmi","password":"secret1"}]`)

	res, err := ImportTeachers(s, "teachers.json", data, Options{})
	if err != nil {
		t.Fatalf("ImportTeachers: %v", err)
	}
	if res.Users != 1 {
		t.Errorf("users = %d, want 1", res.Users)
	}
	tch, err := s.GetTeacher("t1")
	if err != nil || tch == nil {
		t.Fatalf("GetTeacher = %v, %v", tch, err)
	}
	if tch.Subject != "Maths" {
		t.Errorf("subject = %q", tch.Subject)
	}
	u, _ := s.GetUserByLogin("lakshmi@school.test")
	if u == nil || u.ProfileID != "t1" {
		t.Errorf("teacher login by email = %+v", u)
	}
}
