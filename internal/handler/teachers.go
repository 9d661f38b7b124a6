package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/pavelanni/gradebook/internal/i18n"
	"github.com/pavelanni/gradebook/internal/model"
)

func isTeacherSelf(u *model.User, id string) bool {
	return u.Role == model.UserRoleTeacher && u.ProfileID == id
}

func (h *Handler) handleGetTeacher(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user := model.UserFromContext(r.Context())
	if !isTeacherSelf(user, id) && user.Role != model.UserRoleAdmin {
		forbidden(w, r)
		return
	}
	t, err := h.store.GetTeacher(id)
	if err != nil {
		internalError(w, r, "failed to get teacher", err)
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, appI18n.T(r.Context(), "TeacherNotFound"))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type teacherProfileRequest struct {
	Name    string `json:"name" validate:"omitempty,max=100"`
	Subject string `json:"subject" validate:"omitempty,max=50"`
	Email   string `json:"email" validate:"omitempty,email"`
	Class   string `json:"class" validate:"omitempty,max=20"`
	Phone   string `json:"phone" validate:"omitempty,max=20"`
}

func (h *Handler) handleUpdateTeacherProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !isTeacherSelf(model.UserFromContext(r.Context()), id) {
		forbidden(w, r)
		return
	}
	var req teacherProfileRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	t, err := h.store.UpdateTeacherProfile(id, model.Teacher{
		Name:    req.Name,
		Subject: req.Subject,
		Email:   req.Email,
		Class:   req.Class,
		Phone:   req.Phone,
	})
	if err != nil {
		internalError(w, r, "failed to update teacher profile", err)
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, appI18n.T(r.Context(), "TeacherNotFound"))
		return
	}
	writeMessage(w, appI18n.T(r.Context(), "ProfileUpdated"), map[string]any{"teacher": t})
}
