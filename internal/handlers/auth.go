package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"kitefolio/internal/auth"
	"kitefolio/internal/middleware"
	"kitefolio/internal/services"
)

// AuthHandler handles the password gate routes.
type AuthHandler struct {
	deps *Dependencies
	log  zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(deps *Dependencies) *AuthHandler {
	return &AuthHandler{deps: deps, log: deps.Log.With().Str("component", "gate").Logger()}
}

// LoginPage renders the login page.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login.html", http.StatusOK, map[string]any{
		"Title": "Login",
	})
}

// Login checks the submitted password and starts a gate session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLoginError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	ip, ua := middleware.ClientIP(r), r.UserAgent()

	password := r.FormValue("password")
	if password == "" {
		h.renderLoginError(w, http.StatusBadRequest, "Password is required")
		return
	}

	if err := h.deps.Gate.Check(password); err != nil {
		h.deps.audit(services.AuditGateLoginFailed, ip, ua)
		h.renderLoginError(w, http.StatusUnauthorized, "Incorrect password")
		return
	}

	session, err := h.deps.SessionManager.Create()
	if err != nil {
		h.log.Error().Err(err).Msg("Creating gate session")
		h.renderLoginError(w, http.StatusInternalServerError, "An error occurred. Please try again.")
		return
	}

	h.deps.GateMiddleware.SetSessionCookie(w, session.ID, int(auth.DefaultSessionDuration.Seconds()))
	h.deps.audit(services.AuditGateLogin, ip, ua)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout ends the gate session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		h.deps.SessionManager.Delete(cookie.Value)
	}
	middleware.ClearSessionCookie(w)
	h.deps.audit(services.AuditGateLogout, middleware.ClientIP(r), r.UserAgent())

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *AuthHandler) render(w http.ResponseWriter, name string, status int, data map[string]any) {
	render(w, h.log, h.deps.Templates, name, status, data)
}

// renderLoginError renders the login page with an error message.
func (h *AuthHandler) renderLoginError(w http.ResponseWriter, status int, errMsg string) {
	h.render(w, "login.html", status, map[string]any{
		"Title": "Login",
		"Error": errMsg,
	})
}
