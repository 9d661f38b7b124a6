package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/gradebook/internal/model"
)

//go:embed templates/*.txt
var templateFS embed.FS

var questionTagRegex = regexp.MustCompile(`(?i)</?\s*(student-question|system-instructions)\b[^>]*>`)

const maxQuestionRunes = 2000

// Variant selects the tone of study advice.
type Variant string

const (
	// VariantEncouraging leads with praise.
	VariantEncouraging Variant = "encouraging"
	// VariantStandard is the default tone.
	VariantStandard Variant = "standard"
	// VariantDirect is blunt exam coaching.
	VariantDirect Variant = "direct"
)

var validVariants = map[Variant]bool{
	VariantEncouraging: true,
	VariantStandard:    true,
	VariantDirect:      true,
}

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[Variant]*template.Template
)

// IsValidVariant checks if a variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[Variant(v)]
}

// AdviceData holds template data for advice prompts.
type AdviceData struct {
	StudentName  string
	Class        string
	TotalMarks   int
	MaxTotal     int
	Percentage   float64
	Grade        string
	Status       model.Status
	Rank         int
	Ranked       int
	ClassAverage float64
	Subjects     []model.SubjectResult
	Question     string
}

// Load parses the embedded advice templates once.
func Load() error {
	loadOnce.Do(func() {
		templates = make(map[Variant]*template.Template)
		for v := range validVariants {
			name := "templates/advice_" + string(v) + ".txt"
			content, err := templateFS.ReadFile(name)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", name, err)
				return
			}
			tmpl, err := template.New(string(v)).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", name, err)
				return
			}
			templates[v] = tmpl
		}
	})
	return loadErr
}

// NewAdviceData builds prompt data from a result sheet and class statistics.
func NewAdviceData(sheet model.ResultSheet, stats model.RosterStatistics, question string) AdviceData {
	d := AdviceData{
		StudentName:  sheet.Student.Name,
		Class:        sheet.Student.Class,
		TotalMarks:   sheet.Summary.TotalMarks,
		MaxTotal:     model.MaxTotalMarks,
		Percentage:   sheet.Summary.Percentage,
		Grade:        sheet.Summary.Grade,
		Status:       sheet.Summary.Status,
		Ranked:       stats.StudentsWithMarks,
		ClassAverage: stats.ClassAverage,
		Subjects:     sheet.Subjects,
		Question:     sanitizeQuestion(question),
	}
	if sheet.Summary.Rank != nil {
		d.Rank = *sheet.Summary.Rank
	}
	return d
}

// BuildAdvicePrompt renders the advice prompt for a variant.
func BuildAdvicePrompt(variant Variant, data AdviceData) (string, error) {
	if err := Load(); err != nil {
		return "", err
	}
	tmpl, ok := templates[variant]
	if !ok {
		return "", errors.New("invalid prompt variant: " + string(variant))
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sanitizeQuestion(q string) string {
	q = questionTagRegex.ReplaceAllString(q, "")
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) > maxQuestionRunes {
		q = string([]rune(q)[:maxQuestionRunes])
	}
	return q
}
