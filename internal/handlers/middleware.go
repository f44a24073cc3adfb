package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"schoollunch/internal/metrics"
	"schoollunch/internal/models"
	"schoollunch/internal/security"
	"schoollunch/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey    ContextKey = "user"
	SessionContextKey ContextKey = "session_id"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	csrf        *security.CSRFProtector
	limiter     *security.RateLimiter
	metrics     *metrics.Metrics
	clock       clockwork.Clock
}

// NewMiddleware creates a new middleware instance. limiter and m may be nil.
func NewMiddleware(authService *service.AuthService, csrf *security.CSRFProtector, limiter *security.RateLimiter, m *metrics.Metrics, clock clockwork.Clock) *Middleware {
	return &Middleware{
		authService: authService,
		csrf:        csrf,
		limiter:     limiter,
		metrics:     m,
		clock:       clock,
	}
}

// RequireAuth accepts a bearer token or a session cookie. Cookie-authenticated
// requests that change state must carry a matching CSRF header.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token, ok := security.BearerToken(r.Header.Get("Authorization")); ok {
			user, err := m.authService.AuthenticateToken(r.Context(), token)
			if err != nil {
				respondWithServiceError(w, r, err)
				return
			}
			next(w, r.WithContext(context.WithValue(r.Context(), UserContextKey, user)))
			return
		}

		cookie, err := r.Cookie(security.SessionCookieName)
		if err != nil || cookie.Value == "" {
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}

		user, err := m.authService.ValidateSession(r.Context(), cookie.Value)
		if err != nil {
			http.SetCookie(w, security.ExpiredCookie(r, security.SessionCookieName))
			respondWithServiceError(w, r, err)
			return
		}

		if !isSafeMethod(r.Method) && !m.csrf.Valid(cookie.Value, r.Header.Get(security.CSRFHeaderName)) {
			writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "Invalid CSRF token", Code: CodeCSRF})
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		ctx = context.WithValue(ctx, SessionContextKey, cookie.Value)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin is RequireAuth plus an admin check
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r.Context())
		if user == nil || !user.IsAdmin {
			respondWithServiceError(w, r, service.ErrForbidden)
			return
		}
		next(w, r)
	})
}

// RateLimit rejects clients that exceed the limiter's budget
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter != nil && !m.limiter.AllowRequest(r) {
			w.Header().Set("Retry-After", "60")
			respondWithError(w, http.StatusTooManyRequests, "Too many requests, try again later", "", nil)
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// Logging logs every request with its route pattern and feeds the request histogram
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := m.clock.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := m.clock.Since(start)
		m.metrics.ObserveRequest(r.Method, route, rec.status, elapsed)

		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", rec.status,
			"duration", elapsed.Round(time.Microsecond),
		)
	})
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetSessionIDFromContext returns the session ID of a cookie-authenticated request
func GetSessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(SessionContextKey).(string)
	return id
}
