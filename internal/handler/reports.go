package handler

import (
	"log/slog"
	"net/http"

	"github.com/pavelanni/gradebook/internal/grading"
	"github.com/pavelanni/gradebook/internal/handler/views"
)

func (h *Handler) handleReportCard(w http.ResponseWriter, r *http.Request) {
	st := h.loadStudent(w, r)
	if st == nil {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.ReportCard(h.calc.ResultSheet(*st), h.config).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleRankingsReport(w http.ResponseWriter, r *http.Request) {
	rankings, roster, err := h.rankings(r)
	if err != nil {
		internalError(w, r, "failed to build rankings", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.RankingsPage(rankings, grading.ComputeStatistics(roster)).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}
