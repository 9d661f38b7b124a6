package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/pavelanni/gradebook/internal/i18n"
	"github.com/pavelanni/gradebook/internal/model"
	"github.com/pavelanni/gradebook/internal/roster"
)

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers()
	if err != nil {
		internalError(w, r, "failed to list users", err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

type createUserRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=50"`
	Email       string `json:"email" validate:"omitempty,email"`
	DisplayName string `json:"displayName" validate:"max=100"`
	Password    string `json:"password" validate:"required,min=6"`
	Role        string `json:"role" validate:"required,oneof=student teacher admin"`
	ProfileID   string `json:"profileId"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	existing, err := h.store.GetUserByLogin(req.Username)
	if err != nil {
		internalError(w, r, "failed to look up user", err)
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, appI18n.T(r.Context(), "InvalidRequest"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		internalError(w, r, "failed to hash password", err)
		return
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}

	u := model.User{
		Username:     req.Username,
		Email:        req.Email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Role:         model.UserRole(req.Role),
		ProfileID:    req.ProfileID,
		Active:       true,
	}
	id, err := h.store.CreateUser(u)
	if err != nil {
		internalError(w, r, "failed to create user", err)
		return
	}
	u.ID = id
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": appI18n.T(r.Context(), "UserCreated"),
		"user":    u,
	})
}

func (h *Handler) handleToggleUserActive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, appI18n.T(r.Context(), "InvalidRequest"))
		return
	}

	u, err := h.store.GetUserByID(id)
	if err != nil {
		internalError(w, r, "failed to get user", err)
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, appI18n.T(r.Context(), "UserNotFound"))
		return
	}
	if err := h.store.ToggleUserActive(id); err != nil {
		internalError(w, r, "failed to toggle user active", err)
		return
	}
	if u.Active {
		// Deactivated users lose every open session.
		if err := h.store.DeleteUserSessions(id, ""); err != nil {
			slog.Warn("failed to drop sessions", "user_id", id, "error", err)
		}
	}
	u.Active = !u.Active
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) handleUploadRoster(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, appI18n.T(r.Context(), "InvalidRequest"))
		return
	}

	file, header, err := r.FormFile("roster_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, appI18n.T(r.Context(), "InvalidRequest"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		internalError(w, r, "failed to read upload", err)
		return
	}

	res, err := roster.ImportStudents(h.store, h.calc, header.Filename, data, roster.Options{
		AcademicYear: h.config.AcademicYear,
		Force:        r.FormValue("force") == "true",
	})
	if errors.Is(err, roster.ErrUnchanged) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":   appI18n.T(r.Context(), "RosterUnchanged"),
			"duplicate": true,
		})
		return
	}
	if err != nil {
		slog.Warn("roster upload rejected", "filename", header.Filename, "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  appI18n.T(r.Context(), "InvalidRequest"),
			"detail": err.Error(),
		})
		return
	}

	slog.Info("uploaded roster via admin", "filename", header.Filename, "students", res.Students)
	writeMessage(w, appI18n.Td(r.Context(), "RosterImported", map[string]any{"Count": res.Students}), map[string]any{"result": res})
}
