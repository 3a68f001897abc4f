package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func securedResponse(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	handler := SecurityHeaders(NoStore(okHandler()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	return rec
}

func cspDirective(csp, name string) (string, bool) {
	for _, d := range strings.Split(csp, ";") {
		d = strings.TrimSpace(d)
		if d == name || strings.HasPrefix(d, name+" ") {
			return strings.TrimSpace(strings.TrimPrefix(d, name)), true
		}
	}
	return "", false
}

func TestSecurityHeaders_DashboardPolicy(t *testing.T) {
	csp := securedResponse(t, "/").Header().Get("Content-Security-Policy")

	want := map[string]string{
		"default-src":     "'self'",
		"script-src":      "'none'",
		"style-src":       "'self'",
		"img-src":         "'self' data:",
		"frame-ancestors": "'none'",
		"form-action":     "'self'",
	}
	for name, value := range want {
		got, ok := cspDirective(csp, name)
		if !ok {
			t.Errorf("CSP has no %s directive: %s", name, csp)
			continue
		}
		if got != value {
			t.Errorf("%s = %q, want %q", name, got, value)
		}
	}
}

func TestSecurityHeaders_OnlySameOriginSources(t *testing.T) {
	csp := securedResponse(t, "/qr.png").Header().Get("Content-Security-Policy")

	for _, forbidden := range []string{"http:", "https:", "*", "cdn", "'unsafe-inline'", "'unsafe-eval'"} {
		if strings.Contains(csp, forbidden) {
			t.Errorf("CSP allows %q: %s", forbidden, csp)
		}
	}
}

func TestSecurityHeaders_FramingAndSniffing(t *testing.T) {
	h := securedResponse(t, "/api/holdings").Header()

	if got := h.Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
	if got := h.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := h.Get("Referrer-Policy"); got != "same-origin" {
		t.Errorf("Referrer-Policy = %q, want same-origin", got)
	}
	if got := h.Get("Permissions-Policy"); !strings.Contains(got, "camera=()") {
		t.Errorf("Permissions-Policy = %q, want camera disabled", got)
	}
}

func TestNoStore_HoldingsNotCached(t *testing.T) {
	rec := securedResponse(t, "/")

	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
