package handlers

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/staybook/backend/internal/api/middleware"
	"github.com/staybook/backend/internal/session"
	"github.com/staybook/backend/internal/storage"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// Login checks credentials and issues a session token, returned in the body
// and as a cookie.
func Login(users *storage.UserRepository, sessions session.Store, cookieName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if !decodeBody(w, r, &req) {
			return
		}

		u, err := users.GetByEmail(r.Context(), strings.TrimSpace(req.Email))
		if errors.Is(err, storage.ErrNotFound) {
			middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Invalid email or password")
			return
		}
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to load user")
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
			middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Invalid email or password")
			return
		}

		token, err := sessions.Create(r.Context(), u.ID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create session")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     cookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		middleware.WriteJSON(w, http.StatusOK, LoginResponse{Token: token, UserID: u.ID})
	}
}

// Logout forgets the caller's session.
func Logout(sessions session.Store, cookieName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := middleware.SessionToken(r, cookieName); token != "" {
			if err := sessions.Delete(r.Context(), token); err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to end session")
				return
			}
		}

		http.SetCookie(w, &http.Cookie{
			Name:     cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}
