package handler

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/pavelanni/gradebook/internal/i18n"
	"github.com/pavelanni/gradebook/internal/model"
)

const (
	sessionCookieName = "session"
	minPasswordLength = 6
)

// requireAuth is middleware that checks for a valid session cookie.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			unauthorized(w, r)
			return
		}

		authSess, err := h.store.GetAuthSession(cookie.Value)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			unauthorized(w, r)
			return
		}
		if authSess == nil {
			unauthorized(w, r)
			return
		}

		user, err := h.store.GetUserByID(authSess.UserID)
		if err != nil || user == nil || !user.Active {
			unauthorized(w, r)
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole returns middleware that checks the user has one of the allowed roles.
func requireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				unauthorized(w, r)
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			forbidden(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusUnauthorized, appI18n.T(r.Context(), "LoginRequired"))
}

func forbidden(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusForbidden, appI18n.T(r.Context(), "Forbidden"))
}

func isStaff(u *model.User) bool {
	return u.Role == model.UserRoleTeacher || u.Role == model.UserRoleAdmin
}

// canAccessStudent reports whether u may see or edit the student with id.
// Staff see everyone; students only see themselves.
func canAccessStudent(u *model.User, id string) bool {
	return isStaff(u) || (u.Role == model.UserRoleStudent && u.ProfileID == id)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	UserType string `json:"userType" validate:"omitempty,oneof=student teacher admin"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	user, err := h.store.GetUserByLogin(req.Username)
	if err != nil {
		internalError(w, r, "failed to get user", err)
		return
	}
	if user == nil || !user.Active {
		h.loginFailed(w, r)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.loginFailed(w, r)
		return
	}
	if req.UserType != "" && model.UserRole(req.UserType) != user.Role {
		h.loginFailed(w, r)
		return
	}

	token, err := h.store.CreateAuthSession(user.ID, h.sessionTTL)
	if err != nil {
		internalError(w, r, "failed to create auth session", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     h.cookiePath(),
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	slog.Info("user logged in", "user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"userType": user.Role,
		"user":     user,
	})
}

func (h *Handler) loginFailed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"success": false,
		"error":   appI18n.T(r.Context(), "LoginError"),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		_ = h.store.DeleteAuthSession(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     h.cookiePath(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	writeMessage(w, appI18n.T(r.Context(), "LoggedOut"), nil)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	resp := map[string]any{"user": user}

	switch {
	case user.ProfileID == "":
	case user.Role == model.UserRoleStudent:
		st, err := h.store.GetStudent(user.ProfileID)
		if err != nil {
			internalError(w, r, "failed to get student", err)
			return
		}
		if st != nil {
			resp["profile"] = st
		}
	case user.Role == model.UserRoleTeacher:
		t, err := h.store.GetTeacher(user.ProfileID)
		if err != nil {
			internalError(w, r, "failed to get teacher", err)
			return
		}
		if t != nil {
			resp["profile"] = t
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"`
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if len([]rune(req.NewPassword)) < minPasswordLength {
		writeError(w, http.StatusBadRequest, appI18n.Td(r.Context(), "PasswordTooShort", map[string]any{"Min": minPasswordLength}))
		return
	}

	user := model.UserFromContext(r.Context())
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		writeError(w, http.StatusBadRequest, appI18n.T(r.Context(), "PasswordIncorrect"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		internalError(w, r, "failed to hash password", err)
		return
	}
	if err := h.store.UpdatePasswordHash(user.ID, string(hash)); err != nil {
		internalError(w, r, "failed to update password", err)
		return
	}

	keep := ""
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		keep = cookie.Value
	}
	if err := h.store.DeleteUserSessions(user.ID, keep); err != nil {
		slog.Warn("failed to drop other sessions", "user_id", user.ID, "error", err)
	}
	slog.Info("password changed", "user_id", user.ID)
	writeMessage(w, appI18n.T(r.Context(), "PasswordChanged"), nil)
}
