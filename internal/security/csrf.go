package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// CSRFProtector derives CSRF tokens from session IDs with HMAC-SHA256, so
// any replica holding the secret can check them.
type CSRFProtector struct {
	secret []byte
}

// NewCSRFProtector creates a protector keyed by secret
func NewCSRFProtector(secret string) *CSRFProtector {
	return &CSRFProtector{secret: []byte(secret)}
}

// Token returns the CSRF token for sessionID, or "" when there is no session
func (p *CSRFProtector) Token(sessionID string) string {
	if sessionID == "" {
		return ""
	}
	mac := hmac.New(sha256.New, p.secret)
	mac.Write([]byte(sessionID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Valid reports whether token matches sessionID
func (p *CSRFProtector) Valid(sessionID, token string) bool {
	if sessionID == "" || token == "" {
		return false
	}
	return hmac.Equal([]byte(p.Token(sessionID)), []byte(token))
}
