package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"kitefolio/internal/auth"
)

func gateChain(m *GateMiddleware, inner http.Handler) http.Handler {
	return m.LoadSession(m.RequireGate(inner))
}

func TestRequireGate_NoCookie_RedirectsPages(t *testing.T) {
	m := NewGateMiddleware(auth.NewSessionManager(), false)
	handler := gateChain(m, okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}

func TestRequireGate_NoCookie_APIUnauthorized(t *testing.T) {
	m := NewGateMiddleware(auth.NewSessionManager(), false)
	handler := gateChain(m, okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/holdings", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(rec.Body.String(), "gate not passed") {
		t.Errorf("body = %q, want the gate message", rec.Body.String())
	}
}

func TestRequireGate_ValidSession_PassesThrough(t *testing.T) {
	sm := auth.NewSessionManager()
	session, err := sm.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	var seen string
	m := NewGateMiddleware(sm, false)
	handler := gateChain(m, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionID(r)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: session.ID})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if seen != session.ID {
		t.Errorf("SessionID() = %q, want %q", seen, session.ID)
	}
}

func TestLoadSession_UnknownCookie_IsCleared(t *testing.T) {
	m := NewGateMiddleware(auth.NewSessionManager(), false)
	handler := gateChain(m, okHandler())

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "forged"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), "Max-Age=0") {
		t.Errorf("Set-Cookie = %q, want cleared cookie", rec.Header().Get("Set-Cookie"))
	}
}

func TestRedirectIfPassed(t *testing.T) {
	sm := auth.NewSessionManager()
	session, _ := sm.Create()
	m := NewGateMiddleware(sm, false)
	handler := m.LoadSession(m.RedirectIfPassed(okHandler()))

	req := httptest.NewRequest("GET", "/login", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: session.ID})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Errorf("got %d to %q, want 303 to /", rec.Code, rec.Header().Get("Location"))
	}
}

func TestSetSessionCookie_Secure(t *testing.T) {
	m := NewGateMiddleware(auth.NewSessionManager(), true)
	rec := httptest.NewRecorder()
	m.SetSessionCookie(rec, "abc", 3600)

	cookie := rec.Header().Get("Set-Cookie")
	for _, want := range []string{SessionCookieName + "=abc", "HttpOnly", "Secure", "SameSite=Lax"} {
		if !strings.Contains(cookie, want) {
			t.Errorf("Set-Cookie = %q, missing %q", cookie, want)
		}
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	handler := chimw.RequestID(RequestLogger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	line := buf.String()
	for _, want := range []string{`"status":418`, `"path":"/health"`, `"bytes":15`, `"component":"http"`, `"request_id":"`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %s missing %s", line, want)
		}
	}
}
