// Package views renders the printable HTML reports.
package views

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/gradebook/internal/i18n"
	"github.com/pavelanni/gradebook/internal/model"
)

const pageStyle = `body{font-family:sans-serif;margin:2em}table{border-collapse:collapse;width:100%}` +
	`th,td{border:1px solid #999;padding:4px 8px;text-align:left}th{background:#eee}` +
	`.fail{color:#b00}.muted{color:#777}@media print{.noprint{display:none}}`

// layout wraps body in a minimal printable HTML page.
func layout(title func(context.Context) string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html><head><meta charset="utf-8"><title>%s | %s</title><style>%s</style></head><body>`,
			templ.EscapeString(title(ctx)), templ.EscapeString(appI18n.T(ctx, "AppTitle")), pageStyle); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) cell(tag, s string) {
	h.raw("<" + tag + ">")
	h.text(s)
	h.raw("</" + tag + ">")
}

func rankText(ctx context.Context, r *int) string {
	if r == nil {
		return appI18n.T(ctx, "Unranked")
	}
	return strconv.Itoa(*r)
}

func pct(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

// ReportCard renders one student's result sheet.
func ReportCard(sheet model.ResultSheet, cfg model.AppConfig) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t := func(id string) string { return appI18n.T(ctx, id) }
		h := &htmlWriter{w: w}
		st := sheet.Student

		h.cell("h1", t("ReportCard"))
		h.raw("<table><tbody>")
		for _, row := range [][2]string{
			{t("Name"), st.Name},
			{t("RollNo"), st.RollNo},
			{t("Class"), st.Class},
			{t("Section"), st.Section},
			{t("AcademicYear"), firstNonEmpty(st.AcademicYear, cfg.AcademicYear)},
		} {
			h.raw("<tr>")
			h.cell("th", row[0])
			h.cell("td", row[1])
			h.raw("</tr>")
		}
		h.raw("</tbody></table>")

		if len(sheet.Subjects) == 0 {
			h.raw(`<p class="muted">`)
			h.text(t("NoMarksYet"))
			h.raw("</p>")
			return h.err
		}

		h.raw("<table><thead><tr>")
		h.cell("th", t("Subject"))
		h.cell("th", t("Marks"))
		h.cell("th", t("Grade"))
		h.raw("</tr></thead><tbody>")
		for _, s := range sheet.Subjects {
			h.raw("<tr>")
			h.cell("td", s.Name)
			h.cell("td", fmt.Sprintf("%d/%d", s.Marks, model.MaxSubjectMark))
			h.cell("td", s.Grade)
			h.raw("</tr>")
		}
		h.raw("</tbody><tfoot>")
		sum := sheet.Summary
		statusClass := ""
		if sum.Status == model.StatusFail {
			statusClass = ` class="fail"`
		}
		for _, row := range [][2]string{
			{t("Total"), fmt.Sprintf("%d/%d", sum.TotalMarks, model.MaxTotalMarks)},
			{t("Percentage"), pct(sum.Percentage)},
			{t("Grade"), sum.Grade},
			{t("Rank"), rankText(ctx, sum.Rank)},
		} {
			h.raw("<tr>")
			h.cell("th", row[0])
			h.raw(`<td colspan="2">`)
			h.text(row[1])
			h.raw("</td></tr>")
		}
		h.raw("<tr>")
		h.cell("th", t("Status"))
		h.raw(`<td colspan="2"` + statusClass + `>`)
		h.text(string(sum.Status))
		h.raw("</td></tr></tfoot></table>")
		return h.err
	})
	return layout(func(context.Context) string { return sheet.Student.Name }, body)
}

// RankingsPage renders the ranked class list with its statistics.
func RankingsPage(r model.Rankings, stats model.RosterStatistics) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t := func(id string) string { return appI18n.T(ctx, id) }
		h := &htmlWriter{w: w}

		h.cell("h1", t("ClassRankings"))
		h.raw("<p>")
		if r.Stats.Class != "" {
			h.text(t("Class") + " " + r.Stats.Class + " | ")
		}
		h.text(t("AcademicYear") + " " + r.Stats.AcademicYear + " | ")
		h.text(appI18n.Tp(ctx, "StudentsRanked", len(r.Rankings)))
		h.raw("</p><p>")
		h.text(fmt.Sprintf("%s: %s | %s: %d | %s: %d%%",
			t("ClassAverage"), pct(stats.ClassAverage),
			t("TopScore"), stats.TopScore,
			t("PassPercentage"), stats.PassPercentage))
		h.raw("</p><table><thead><tr>")
		for _, id := range []string{"Rank", "RollNo", "Name", "Section", "Total", "Percentage", "Grade", "Status"} {
			h.cell("th", t(id))
		}
		h.raw("</tr></thead><tbody>")
		for _, st := range r.Rankings {
			if st.Status == model.StatusFail {
				h.raw(`<tr class="fail">`)
			} else {
				h.raw("<tr>")
			}
			h.cell("td", rankText(ctx, st.Rank))
			h.cell("td", st.RollNo)
			h.cell("td", st.Name)
			h.cell("td", st.Section)
			h.cell("td", strconv.Itoa(st.TotalMarks))
			h.cell("td", pct(st.Percentage))
			h.cell("td", st.Grade)
			h.cell("td", string(st.Status))
			h.raw("</tr>")
		}
		h.raw("</tbody></table>")
		return h.err
	})
	return layout(func(ctx context.Context) string { return appI18n.T(ctx, "ClassRankings") }, body)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
