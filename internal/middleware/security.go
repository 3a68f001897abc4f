package middleware

import (
	"net/http"
	"strings"
)

// cspDirectives allow only same-origin resources. Templates and CSS are embedded
// in the binary and the QR code is served from /qr.png.
var cspDirectives = []string{
	"default-src 'self'",
	"script-src 'none'",
	"style-src 'self'",
	"img-src 'self' data:",
	"connect-src 'self'",
	"frame-ancestors 'none'",
	"form-action 'self'",
	"base-uri 'none'",
}

var securityHeaders = map[string]string{
	"Content-Security-Policy": strings.Join(cspDirectives, "; "),
	"X-Frame-Options":         "DENY",
	"X-Content-Type-Options":  "nosniff",
	"Referrer-Policy":         "same-origin",
	"Permissions-Policy":      "camera=(), geolocation=(), microphone=(), payment=()",
}

// SecurityHeaders sets the dashboard's browser security policy on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for name, value := range securityHeaders {
			w.Header().Set(name, value)
		}
		next.ServeHTTP(w, r)
	})
}

// NoStore marks responses as uncacheable. Holdings pages carry account data.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
