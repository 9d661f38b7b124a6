package grading

import (
	"errors"
	"math"
	"testing"

	"github.com/pavelanni/gradebook/internal/model"
)

func marks(tamil, english, maths, science, social int) model.Marks {
	return model.Marks{
		model.SubjectTamil:   tamil,
		model.SubjectEnglish: english,
		model.SubjectMaths:   maths,
		model.SubjectScience: science,
		model.SubjectSocial:  social,
	}
}

// marksForTotal spreads total over the five subjects without exceeding 100.
func marksForTotal(total int) model.Marks {
	m := make(model.Marks, len(model.Subjects))
	for _, subj := range model.Subjects {
		v := min(total, model.MaxSubjectMark)
		m[subj] = v
		total -= v
	}
	return m
}

func TestComputeGrade(t *testing.T) {
	c := Default()

	tests := []struct {
		name   string
		marks  model.Marks
		total  int
		pct    float64
		grade  string
		status model.Status
	}{
		{"high scorer", marks(85, 78, 92, 88, 80), 423, 84.6, "A", model.StatusPass},
		{"failing", marks(30, 35, 20, 25, 10), 120, 24.0, "F", model.StatusFail},
		{"perfect", marks(100, 100, 100, 100, 100), 500, 100, "A+", model.StatusPass},
		{"zero", marks(0, 0, 0, 0, 0), 0, 0, "F", model.StatusFail},
		{"exactly pass", marks(40, 40, 40, 40, 40), 200, 40, "D", model.StatusPass},
		{"just below pass", marks(40, 40, 40, 40, 39), 199, 39.8, "F", model.StatusFail},
		{"exactly A+", marks(90, 90, 90, 90, 90), 450, 90, "A+", model.StatusPass},
		{"B plus", marks(75, 70, 72, 71, 70), 358, 71.6, "B+", model.StatusPass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ComputeGrade(tt.marks)
			if err != nil {
				t.Fatalf("ComputeGrade: %v", err)
			}
			if got.TotalMarks != tt.total {
				t.Errorf("TotalMarks = %d, want %d", got.TotalMarks, tt.total)
			}
			if got.Percentage != tt.pct {
				t.Errorf("Percentage = %v, want %v", got.Percentage, tt.pct)
			}
			if got.Grade != tt.grade {
				t.Errorf("Grade = %q, want %q", got.Grade, tt.grade)
			}
			if got.Status != tt.status {
				t.Errorf("Status = %q, want %q", got.Status, tt.status)
			}
		})
	}
}

func TestComputeGradeAllTotals(t *testing.T) {
	c := Default()
	for total := 0; total <= model.MaxTotalMarks; total++ {
		got, err := c.ComputeGrade(marksForTotal(total))
		if err != nil {
			t.Fatalf("total %d: %v", total, err)
		}
		if got.TotalMarks != total {
			t.Fatalf("total %d: TotalMarks = %d", total, got.TotalMarks)
		}
		wantPct := math.Round(float64(total)/500*100*10) / 10
		if got.Percentage != wantPct {
			t.Fatalf("total %d: Percentage = %v, want %v", total, got.Percentage, wantPct)
		}
		if (got.Status == model.StatusPass) != (got.Percentage >= 40) {
			t.Fatalf("total %d: Status = %q at %v%%", total, got.Status, got.Percentage)
		}
	}
}

func TestComputeGradeIdempotent(t *testing.T) {
	c := Default()
	m := marks(55, 61, 47, 80, 33)
	first, err := c.ComputeGrade(m)
	if err != nil {
		t.Fatalf("ComputeGrade: %v", err)
	}
	second, err := c.ComputeGrade(m)
	if err != nil {
		t.Fatalf("ComputeGrade: %v", err)
	}
	if first != second {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}
}

func TestComputeGradeValidation(t *testing.T) {
	c := Default()

	missing := marks(50, 50, 50, 50, 50)
	delete(missing, model.SubjectMaths)

	extra := marks(50, 50, 50, 50, 50)
	extra["hindi"] = 70

	tests := []struct {
		name    string
		marks   model.Marks
		problem Problem
		subject string
	}{
		{"nil marks", nil, ProblemNoMarks, ""},
		{"missing subject", missing, ProblemMissing, "maths"},
		{"above range", marks(50, 101, 50, 50, 50), ProblemOutOfRange, "english"},
		{"below range", marks(50, 50, 50, 50, -1), ProblemOutOfRange, "social"},
		{"unknown subject", extra, ProblemUnknownSubject, "hindi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.ComputeGrade(tt.marks)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if ve.Problem != tt.problem {
				t.Errorf("Problem = %d, want %d", ve.Problem, tt.problem)
			}
			if ve.Subject != tt.subject {
				t.Errorf("Subject = %q, want %q", ve.Subject, tt.subject)
			}
			if ve.Error() == "" {
				t.Error("empty error message")
			}
		})
	}
}

func TestScaleLetterBoundaries(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{100, "A+"},
		{90.0, "A+"},
		{89.9, "A"},
		{80, "A"},
		{79.9, "B+"},
		{70, "B+"},
		{60, "B"},
		{50, "C"},
		{40.0, "D"},
		{39.9, "F"},
		{0, "F"},
	}
	for _, tt := range tests {
		if got := StandardScale.Letter(tt.pct); got != tt.want {
			t.Errorf("Letter(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestClassicScale(t *testing.T) {
	c := New(ClassicScale)
	got, err := c.ComputeGrade(marks(75, 70, 72, 71, 70))
	if err != nil {
		t.Fatalf("ComputeGrade: %v", err)
	}
	if got.Grade != "B" {
		t.Errorf("Grade = %q, want B", got.Grade)
	}
	if g := ClassicScale.Letter(55); g != "D" {
		t.Errorf("Letter(55) = %q, want D", g)
	}
}

func TestScaleByName(t *testing.T) {
	if s, ok := ScaleByName(""); !ok || s.Name != "standard" {
		t.Errorf("empty name should give standard scale, got %q ok=%v", s.Name, ok)
	}
	if s, ok := ScaleByName(" Classic "); !ok || s.Name != "classic" {
		t.Errorf("expected classic scale, got %q ok=%v", s.Name, ok)
	}
	if _, ok := ScaleByName("curved"); ok {
		t.Error("unknown scale should not resolve")
	}
}

func TestSubjectGrade(t *testing.T) {
	c := Default()
	if got := c.SubjectGrade(92); got != "A+" {
		t.Errorf("SubjectGrade(92) = %q, want A+", got)
	}
	if got := c.SubjectGrade(35); got != "F" {
		t.Errorf("SubjectGrade(35) = %q, want F", got)
	}
}

func TestMarksFromInput(t *testing.T) {
	v := func(n int) *int { return &n }

	got, err := MarksFromInput(map[string]*int{
		"Tamil": v(85), "english": v(78), "maths": v(92), "science": v(88), "social": v(80),
	})
	if err != nil {
		t.Fatalf("MarksFromInput: %v", err)
	}
	if got[model.SubjectTamil] != 85 {
		t.Errorf("tamil = %d, want 85", got[model.SubjectTamil])
	}

	_, err = MarksFromInput(map[string]*int{"tamil": nil})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Problem != ProblemMissing || ve.Subject != "tamil" {
		t.Errorf("expected missing tamil, got %v", err)
	}

	got, err = MarksFromInput(nil)
	if err != nil || got != nil {
		t.Errorf("nil input: got %v, %v", got, err)
	}
}

func TestMarksFromInputCaseFoldedDuplicate(t *testing.T) {
	v := func(n int) *int { return &n }

	tests := []struct {
		name string
		raw  map[string]*int
		want Problem
	}{
		{"mixed case", map[string]*int{"tamil": v(10), "Tamil": v(90)}, ProblemDuplicateSubject},
		{"padded", map[string]*int{"maths": v(50), " MATHS ": v(60)}, ProblemDuplicateSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Repeat so both map iteration orders are seen.
			for i := 0; i < 20; i++ {
				got, err := MarksFromInput(tt.raw)
				var ve *ValidationError
				if !errors.As(err, &ve) || ve.Problem != tt.want {
					t.Fatalf("got %v, %v; want duplicate subject error", got, err)
				}
			}
		})
	}

	// A null twin fails either way; it never yields a marks map.
	for i := 0; i < 20; i++ {
		if got, err := MarksFromInput(map[string]*int{"science": v(70), "Science": nil}); err == nil {
			t.Fatalf("null twin accepted: %v", got)
		}
	}

	_, err := MarksFromInput(map[string]*int{"tamil": v(10), "Tamil": v(90)})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Problem != ProblemDuplicateSubject || ve.Subject != "tamil" {
		t.Errorf("expected duplicate tamil, got %v", err)
	}
	if err.Error() != "duplicate marks for tamil" {
		t.Errorf("Error() = %q", err.Error())
	}
}
