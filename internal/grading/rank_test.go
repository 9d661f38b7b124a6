package grading

import (
	"testing"

	"github.com/pavelanni/gradebook/internal/model"
)

func gradedStudent(t *testing.T, id string, m model.Marks) model.Student {
	t.Helper()
	s := model.Student{ID: id, Name: "Student " + id, Class: "10A"}
	if m == nil {
		return s
	}
	r, err := Default().ComputeGrade(m)
	if err != nil {
		t.Fatalf("gradedStudent %s: %v", id, err)
	}
	s.ApplyGrade(m, r)
	return s
}

func rankOf(t *testing.T, ranked []model.Student, id string) *int {
	t.Helper()
	for _, s := range ranked {
		if s.ID == id {
			return s.Rank
		}
	}
	t.Fatalf("student %s missing from ranked roster", id)
	return nil
}

func TestRankRosterExample(t *testing.T) {
	roster := []model.Student{
		gradedStudent(t, "S001", marks(85, 78, 92, 88, 80)),
		gradedStudent(t, "S002", marks(30, 35, 20, 25, 10)),
		gradedStudent(t, "S003", nil),
	}

	ranked := RankRoster(roster)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 students, got %d", len(ranked))
	}
	if r := rankOf(t, ranked, "S001"); r == nil || *r != 1 {
		t.Errorf("S001 rank = %v, want 1", r)
	}
	if r := rankOf(t, ranked, "S002"); r == nil || *r != 2 {
		t.Errorf("S002 rank = %v, want 2", r)
	}
	if r := rankOf(t, ranked, "S003"); r != nil {
		t.Errorf("S003 should be unranked, got %d", *r)
	}
	if ranked[2].ID != "S003" {
		t.Errorf("unmarked student should come last, got %s", ranked[2].ID)
	}

	st := ComputeStatistics(roster)
	if st.StudentsWithMarks != 2 || st.PassPercentage != 50 {
		t.Errorf("stats = %+v", st)
	}
}

func TestRankRosterPassBeforeFail(t *testing.T) {
	c := Default()
	c.PassMark = 60

	// With a higher pass mark a 59% student fails while a 60% student passes,
	// so totals alone cannot decide the order.
	build := func(id string, m model.Marks) model.Student {
		r, err := c.ComputeGrade(m)
		if err != nil {
			t.Fatalf("ComputeGrade: %v", err)
		}
		s := model.Student{ID: id}
		s.ApplyGrade(m, r)
		return s
	}
	roster := []model.Student{
		build("fail-high", marks(59, 59, 59, 59, 59)),
		build("pass-low", marks(60, 60, 60, 60, 60)),
		build("fail-low", marks(10, 10, 10, 10, 10)),
		build("pass-high", marks(95, 95, 95, 95, 95)),
	}
	// Force a failing status on a higher total to check the partition is by status.
	roster[0].TotalMarks = 499

	ranked := RankRoster(roster)
	wantOrder := []string{"pass-high", "pass-low", "fail-high", "fail-low"}
	for i, id := range wantOrder {
		if ranked[i].ID != id {
			t.Fatalf("position %d = %s, want %s", i, ranked[i].ID, id)
		}
		if *ranked[i].Rank != i+1 {
			t.Errorf("%s rank = %d, want %d", id, *ranked[i].Rank, i+1)
		}
	}

	for _, a := range ranked {
		for _, b := range ranked {
			if a.Status == model.StatusPass && b.Status == model.StatusFail && *a.Rank >= *b.Rank {
				t.Errorf("passing %s (rank %d) not above failing %s (rank %d)", a.ID, *a.Rank, b.ID, *b.Rank)
			}
		}
	}
}

func TestRankRosterTiesKeepRosterOrder(t *testing.T) {
	roster := []model.Student{
		gradedStudent(t, "A", marks(70, 70, 70, 70, 70)),
		gradedStudent(t, "B", marks(80, 80, 80, 80, 80)),
		gradedStudent(t, "C", marks(70, 70, 70, 70, 70)),
		gradedStudent(t, "D", marks(70, 70, 70, 70, 70)),
	}

	ranked := RankRoster(roster)
	want := []string{"B", "A", "C", "D"}
	for i, id := range want {
		if ranked[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, ranked[i].ID, id)
		}
		if *ranked[i].Rank != i+1 {
			t.Errorf("%s rank = %d, want %d (no shared ranks)", id, *ranked[i].Rank, i+1)
		}
	}
}

func TestRankRosterDescendingWithinGroup(t *testing.T) {
	roster := []model.Student{
		gradedStudent(t, "1", marks(45, 50, 41, 60, 70)),
		gradedStudent(t, "2", marks(99, 88, 77, 66, 55)),
		gradedStudent(t, "3", marks(10, 20, 30, 20, 10)),
		gradedStudent(t, "4", marks(35, 30, 39, 20, 25)),
		gradedStudent(t, "5", marks(61, 62, 63, 64, 65)),
	}
	ranked := Ranked(RankRoster(roster))
	for i := 1; i < len(ranked); i++ {
		prev, cur := ranked[i-1], ranked[i]
		if prev.Status == cur.Status && prev.TotalMarks < cur.TotalMarks {
			t.Errorf("%s (%d) ranked above %s (%d) in same group", prev.ID, prev.TotalMarks, cur.ID, cur.TotalMarks)
		}
	}
}

func TestRankRosterIdempotent(t *testing.T) {
	roster := []model.Student{
		gradedStudent(t, "A", marks(50, 60, 70, 80, 90)),
		gradedStudent(t, "B", nil),
		gradedStudent(t, "C", marks(20, 20, 20, 20, 20)),
		gradedStudent(t, "D", marks(50, 60, 70, 80, 90)),
	}

	first := RankRoster(roster)
	second := RankRoster(roster)
	again := RankRoster(first)
	for i := range first {
		if first[i].ID != second[i].ID || first[i].ID != again[i].ID {
			t.Fatalf("order differs at %d: %s %s %s", i, first[i].ID, second[i].ID, again[i].ID)
		}
		r1, r2 := first[i].Rank, again[i].Rank
		if (r1 == nil) != (r2 == nil) || (r1 != nil && *r1 != *r2) {
			t.Errorf("rank differs for %s", first[i].ID)
		}
	}
}

func TestRankRosterDoesNotMutateInput(t *testing.T) {
	roster := []model.Student{
		gradedStudent(t, "A", marks(20, 20, 20, 20, 20)),
		gradedStudent(t, "B", marks(90, 90, 90, 90, 90)),
	}
	ranked := RankRoster(roster)
	ranked[0].Marks[model.SubjectTamil] = 0

	if roster[0].ID != "A" || roster[0].Rank != nil {
		t.Errorf("input roster was reordered or ranked: %+v", roster[0])
	}
	if roster[1].Marks[model.SubjectTamil] != 90 {
		t.Error("ranked roster shares marks with the input")
	}
}

func TestRankRosterEmpty(t *testing.T) {
	if got := RankRoster(nil); len(got) != 0 {
		t.Errorf("expected empty ranking, got %d", len(got))
	}
	unmarked := []model.Student{{ID: "X"}, {ID: "Y"}}
	got := RankRoster(unmarked)
	if len(Ranked(got)) != 0 {
		t.Errorf("expected no ranked students, got %d", len(Ranked(got)))
	}
	if len(got) != 2 || got[0].ID != "X" || got[1].ID != "Y" {
		t.Errorf("unmarked students should be kept in roster order: %+v", got)
	}
}
