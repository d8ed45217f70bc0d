package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"posterminal/models"
)

// CookieName is the cookie the terminal UI sends its session token in.
const CookieName = "auth-token"

// Validator is the part of SessionStore the gate needs.
type Validator interface {
	Validate(ctx context.Context, token string) (string, error)
}

// Gate authenticates requests against a session store.
type Gate struct {
	sessions Validator
}

func NewGate(sessions Validator) *Gate {
	return &Gate{sessions: sessions}
}

// Authenticate returns the caller's identity or models.ErrUnauthenticated.
func (g *Gate) Authenticate(r *http.Request) (string, error) {
	token, err := TokenFromRequest(r)
	if err != nil {
		return "", err
	}
	return g.sessions.Validate(r.Context(), token)
}

// TokenFromRequest reads the session cookie, falling back to a bearer
// Authorization header.
func TokenFromRequest(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("%w: no session token", models.ErrUnauthenticated)
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("%w: malformed authorization header", models.ErrUnauthenticated)
	}
	return strings.TrimSpace(parts[1]), nil
}
