package security

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	// SessionCookieName holds the server-side session ID
	SessionCookieName = "lunch_session"
	// OAuthStateCookieName holds the OAuth state between start and callback
	OAuthStateCookieName = "lunch_oauth_state"
	// CSRFHeaderName carries the CSRF token on cookie-authenticated writes
	CSRFHeaderName = "X-CSRF-Token"
)

// GenerateSessionID creates a new random session identifier
func GenerateSessionID() string {
	return uuid.NewString()
}

// IsSecureRequest reports whether the request arrived over HTTPS, directly or through a proxy
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" {
		return true
	}
	return r.URL.Scheme == "https"
}

// NewCookie creates an HttpOnly cookie. Secure is set when the request came over HTTPS.
func NewCookie(r *http.Request, name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredCookie creates a cookie that tells the browser to drop name
func ExpiredCookie(r *http.Request, name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}
