package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"schoollunch/internal/models"
	"schoollunch/internal/security"
	"schoollunch/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService          *service.AuthService
	csrf                 *security.CSRFProtector
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, csrf *security.CSRFProtector, oauthProviders map[string]OAuthProvider, oauthRedirectBaseURL string) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		csrf:                 csrf,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the signed-in user, the CSRF token for cookie
// requests and a bearer token for API clients
type LoginResponse struct {
	User           *models.User `json:"user"`
	CSRFToken      string       `json:"csrfToken"`
	Token          string       `json:"token"`
	TokenExpiresAt time.Time    `json:"tokenExpiresAt"`
}

// Register creates an account and signs it in
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	password := in.Password

	user, err := h.authService.Register(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	slog.Info("user registered", "user_id", user.ID, "admin", user.IsAdmin)

	session, user, err := h.authService.Login(r.Context(), user.Username, password)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.startSession(w, r, http.StatusCreated, session, user)
}

// Login checks credentials and opens a session
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	session, user, err := h.authService.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.startSession(w, r, http.StatusOK, session, user)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, status int, session *models.Session, user *models.User) {
	token, expiresAt, err := h.authService.IssueToken(user)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error issuing token", err)
		return
	}

	http.SetCookie(w, security.NewCookie(r, security.SessionCookieName, session.ID, session.ExpiresAt))
	writeJSON(w, status, LoginResponse{
		User:           user,
		CSRFToken:      h.csrf.Token(session.ID),
		Token:          token,
		TokenExpiresAt: expiresAt,
	})
}

// Logout drops the session named by the cookie, if any
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(security.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			slog.Warn("failed to delete session on logout", "error", err)
		}
	}
	http.SetCookie(w, security.ExpiredCookie(r, security.SessionCookieName))
	w.WriteHeader(http.StatusNoContent)
}

// CurrentUser returns the signed-in user
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"user":      user,
		"csrfToken": h.csrf.Token(GetSessionIDFromContext(r.Context())),
	})
}

// UpdateProfile replaces the signed-in user's profile fields
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var in service.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	updated, err := h.authService.UpdateProfile(r.Context(), user.ID, in)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
