package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/gradebook/internal/grading"
	appI18n "github.com/pavelanni/gradebook/internal/i18n"
	"github.com/pavelanni/gradebook/internal/model"
	"github.com/pavelanni/gradebook/internal/store"
)

const suggestionTimeout = 60 * time.Second

// loadStudent fetches the {id} student and checks the caller may access it.
// It writes the error response and returns nil when the request must stop.
func (h *Handler) loadStudent(w http.ResponseWriter, r *http.Request) *model.Student {
	id := chi.URLParam(r, "id")
	user := model.UserFromContext(r.Context())
	if !canAccessStudent(user, id) {
		forbidden(w, r)
		return nil
	}
	st, err := h.store.GetStudent(id)
	if err != nil {
		internalError(w, r, "failed to get student", err)
		return nil
	}
	if st == nil {
		writeError(w, http.StatusNotFound, appI18n.T(r.Context(), "StudentNotFound"))
		return nil
	}
	return st
}

// resolveClass picks the class a class-scoped request refers to: the class
// query parameter, then the caller's own class, then the configured default,
// then the first class on file.
func (h *Handler) resolveClass(r *http.Request) (string, error) {
	if c := r.URL.Query().Get("class"); c != "" {
		return c, nil
	}
	user := model.UserFromContext(r.Context())
	if user != nil && user.Role == model.UserRoleStudent && user.ProfileID != "" {
		st, err := h.store.GetStudent(user.ProfileID)
		if err != nil {
			return "", err
		}
		if st != nil {
			return st.Class, nil
		}
	}
	if h.config.DefaultClass != "" {
		return h.config.DefaultClass, nil
	}
	classes, err := h.store.ListClasses()
	if err != nil || len(classes) == 0 {
		return "", err
	}
	return classes[0], nil
}

func (h *Handler) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.store.ListStudents(r.URL.Query().Get("class"))
	if err != nil {
		internalError(w, r, "failed to list students", err)
		return
	}
	if students == nil {
		students = []model.Student{}
	}
	writeJSON(w, http.StatusOK, students)
}

func (h *Handler) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	if st := h.loadStudent(w, r); st != nil {
		writeJSON(w, http.StatusOK, st)
	}
}

type studentProfileRequest struct {
	Name    string `json:"name" validate:"omitempty,max=100"`
	Section string `json:"section" validate:"omitempty,max=20"`
	Email   string `json:"email" validate:"omitempty,email"`
}

func (h *Handler) handleUpdateStudentProfile(w http.ResponseWriter, r *http.Request) {
	st := h.loadStudent(w, r)
	if st == nil {
		return
	}
	var req studentProfileRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Name != "" {
		st.Name = req.Name
	}
	if req.Section != "" {
		st.Section = req.Section
	}
	if req.Email != "" {
		st.Email = req.Email
	}
	if err := h.store.UpdateStudentProfile(st.ID, st.Name, st.Section, st.Email); err != nil {
		if errors.Is(err, store.ErrStudentNotFound) {
			writeError(w, http.StatusNotFound, appI18n.T(r.Context(), "StudentNotFound"))
			return
		}
		internalError(w, r, "failed to update student profile", err)
		return
	}
	writeMessage(w, appI18n.T(r.Context(), "ProfileUpdated"), map[string]any{"student": st})
}

func (h *Handler) handleResult(w http.ResponseWriter, r *http.Request) {
	if st := h.loadStudent(w, r); st != nil {
		writeJSON(w, http.StatusOK, h.calc.ResultSheet(*st))
	}
}

type marksRequest struct {
	Marks map[string]*int `json:"marks" validate:"required"`
}

func (h *Handler) handleSubmitMarks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req marksRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	marks, err := grading.MarksFromInput(req.Marks)
	if err == nil {
		var st *model.Student
		st, err = h.store.SubmitMarks(id, marks, h.calc)
		if err == nil {
			writeMessage(w, appI18n.T(r.Context(), "MarksUpdated"), map[string]any{"student": st})
			return
		}
	}
	h.marksError(w, r, err)
}

func (h *Handler) handleClearMarks(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.ClearMarks(chi.URLParam(r, "id"))
	if err != nil {
		h.marksError(w, r, err)
		return
	}
	writeMessage(w, appI18n.T(r.Context(), "MarksCleared"), map[string]any{"student": st})
}

func (h *Handler) marksError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *grading.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, appI18n.Td(r.Context(), "InvalidMarks", map[string]any{"Detail": verr.Error()}))
	case errors.Is(err, store.ErrStudentNotFound):
		writeError(w, http.StatusNotFound, appI18n.T(r.Context(), "StudentNotFound"))
	default:
		internalError(w, r, "failed to update marks", err)
	}
}

func (h *Handler) rankings(r *http.Request) (model.Rankings, []model.Student, error) {
	class, err := h.resolveClass(r)
	if err != nil {
		return model.Rankings{}, nil, err
	}
	roster, err := h.store.ListStudents(class)
	if err != nil {
		return model.Rankings{}, nil, err
	}
	ranked := grading.Ranked(grading.RankRoster(roster))
	if ranked == nil {
		ranked = []model.Student{}
	}
	return model.Rankings{
		Stats: model.RankingStats{
			TotalStudents: len(roster),
			Class:         class,
			AcademicYear:  h.config.AcademicYear,
		},
		Rankings: ranked,
	}, roster, nil
}

func (h *Handler) handleRankings(w http.ResponseWriter, r *http.Request) {
	rankings, _, err := h.rankings(r)
	if err != nil {
		internalError(w, r, "failed to build rankings", err)
		return
	}
	writeJSON(w, http.StatusOK, rankings)
}

// handleStatistics summarizes the same class /api/rankings would rank.
func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	class, err := h.resolveClass(r)
	if err != nil {
		internalError(w, r, "failed to resolve class", err)
		return
	}
	roster, err := h.store.ListStudents(class)
	if err != nil {
		internalError(w, r, "failed to list students", err)
		return
	}
	writeJSON(w, http.StatusOK, grading.ComputeStatistics(roster))
}

type suggestionRequest struct {
	Question string `json:"question" validate:"max=2000"`
}

func (h *Handler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user := model.UserFromContext(r.Context())
	if user.Role != model.UserRoleStudent || user.ProfileID != id {
		forbidden(w, r)
		return
	}
	if h.advisor == nil {
		writeError(w, http.StatusServiceUnavailable, appI18n.T(r.Context(), "SuggestionsUnavailable"))
		return
	}

	var req suggestionRequest
	if r.ContentLength != 0 && !h.decodeJSON(w, r, &req) {
		return
	}

	st := h.loadStudent(w, r)
	if st == nil {
		return
	}
	if !st.Marked() {
		writeError(w, http.StatusBadRequest, appI18n.T(r.Context(), "NoMarksYet"))
		return
	}
	roster, err := h.store.ListStudents(st.Class)
	if err != nil {
		internalError(w, r, "failed to list students", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), suggestionTimeout)
	defer cancel()
	advice, err := h.advisor.SuggestStudyPlan(ctx, h.calc.ResultSheet(*st), grading.ComputeStatistics(roster), req.Question)
	if err != nil {
		slog.Error("study suggestions failed", "student_id", id, "error", err)
		writeError(w, http.StatusBadGateway, appI18n.T(r.Context(), "SuggestionsUnavailable"))
		return
	}
	writeJSON(w, http.StatusOK, advice)
}
