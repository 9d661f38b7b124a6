package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/gradebook/internal/grading"
	appI18n "github.com/pavelanni/gradebook/internal/i18n"
	"github.com/pavelanni/gradebook/internal/llm"
	"github.com/pavelanni/gradebook/internal/model"
	"github.com/pavelanni/gradebook/internal/store"
)

// advisor produces study suggestions. *llm.Client implements it.
type advisor interface {
	SuggestStudyPlan(ctx context.Context, sheet model.ResultSheet, stats model.RosterStatistics, question string) (*llm.Advice, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store      *store.Store
	advisor    advisor
	calc       grading.Calculator
	config     model.AppConfig
	sessionTTL time.Duration
	validate   *validator.Validate
}

// New creates a new Handler. l may be nil, in which case study suggestions
// answer 503.
func New(s *store.Store, l *llm.Client, calc grading.Calculator, cfg model.AppConfig, sessionTTL time.Duration) (*Handler, error) {
	if sessionTTL <= 0 {
		sessionTTL = store.DefaultSessionTTL
	}
	h := &Handler{
		store:      s,
		calc:       calc,
		config:     cfg,
		sessionTTL: sessionTTL,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
	if l != nil {
		h.advisor = l
	}
	return h, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/login", h.handleLogin)
	r.Post("/api/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/api/me", h.handleMe)
		r.Post("/api/password", h.handleChangePassword)
		r.Get("/api/rankings", h.handleRankings)

		r.Get("/api/students/{id}", h.handleGetStudent)
		r.Put("/api/students/{id}/profile", h.handleUpdateStudentProfile)
		r.Get("/api/students/{id}/result", h.handleResult)
		r.Post("/api/students/{id}/suggestions", h.handleSuggestions)
		r.Get("/reports/students/{id}", h.handleReportCard)

		r.Get("/api/teachers/{id}", h.handleGetTeacher)
		r.Put("/api/teachers/{id}/profile", h.handleUpdateTeacherProfile)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleTeacher, model.UserRoleAdmin))
			r.Get("/api/students", h.handleListStudents)
			r.Post("/api/students/{id}/marks", h.handleSubmitMarks)
			r.Delete("/api/students/{id}/marks", h.handleClearMarks)
			r.Get("/api/statistics", h.handleStatistics)
			r.Get("/reports/rankings", h.handleRankingsReport)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Get("/api/admin/users", h.handleListUsers)
			r.Post("/api/admin/users", h.handleCreateUser)
			r.Post("/api/admin/users/{userID}/toggle", h.handleToggleUserActive)
			r.Post("/api/admin/roster", h.handleUploadRoster)
		})
	})
}

// BasePathMiddleware stores the configured base path in the request context.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeMessage(w http.ResponseWriter, msg string, extra map[string]any) {
	body := map[string]any{"message": msg}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

// internalError logs err and answers with a localized 500.
func internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.Error(msg, "error", err, "path", r.URL.Path)
	writeError(w, http.StatusInternalServerError, appI18n.T(r.Context(), "InternalError"))
}

// decodeJSON reads a JSON body into dst and runs struct validation on it.
// It writes a 400 and returns false on failure.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, appI18n.T(r.Context(), "InvalidRequest"))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[lowerFirst(fe.Field())] = fe.Tag()
			}
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  appI18n.T(r.Context(), "InvalidRequest"),
				"fields": fields,
			})
			return false
		}
		writeError(w, http.StatusBadRequest, appI18n.T(r.Context(), "InvalidRequest"))
		return false
	}
	return true
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
