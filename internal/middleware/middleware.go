// Package middleware provides HTTP middleware for the kitefolio dashboard.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"kitefolio/internal/auth"
	apperrors "kitefolio/internal/errors"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// SessionContextKey is the context key for the gate session id.
	SessionContextKey ContextKey = "gate_session"

	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "kitefolio_session"
)

// GateMiddleware enforces the dashboard password gate.
type GateMiddleware struct {
	sessions     *auth.SessionManager
	secureCookie bool
}

// NewGateMiddleware creates a new GateMiddleware.
func NewGateMiddleware(sm *auth.SessionManager, secureCookie bool) *GateMiddleware {
	return &GateMiddleware{sessions: sm, secureCookie: secureCookie}
}

// LoadSession puts a valid session id from the cookie into the request context.
// It does not require the gate to be passed.
func (m *GateMiddleware) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		if err := m.sessions.Validate(cookie.Value); err != nil {
			ClearSessionCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, cookie.Value)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireGate redirects pages to /login and answers API calls with 401.
func (m *GateMiddleware) RequireGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionID(r) == "" {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				WriteError(w, apperrors.Unauthorized("gate not passed"))
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RedirectIfPassed sends visitors who already passed the gate to the dashboard.
func (m *GateMiddleware) RedirectIfPassed(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionID(r) != "" {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetSessionCookie sets the session cookie.
func (m *GateMiddleware) SetSessionCookie(w http.ResponseWriter, sessionID string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionID returns the passed-gate session id, or "".
func SessionID(r *http.Request) string {
	id, _ := r.Context().Value(SessionContextKey).(string)
	return id
}

// ClearSessionCookie clears the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// WriteError answers with the message and status of err.
func WriteError(w http.ResponseWriter, err *apperrors.AppError) {
	http.Error(w, err.Message, apperrors.HTTPStatus(err))
}
