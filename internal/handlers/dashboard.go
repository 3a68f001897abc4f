package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"kitefolio/internal/cache"
	apperrors "kitefolio/internal/errors"
	"kitefolio/internal/middleware"
	"kitefolio/internal/services"
)

// DashboardHandler handles the holdings page and the refresh action.
type DashboardHandler struct {
	deps *Dependencies
	log  zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(deps *Dependencies) *DashboardHandler {
	return &DashboardHandler{deps: deps, log: deps.Log.With().Str("component", "dashboard").Logger()}
}

// Dashboard renders the summary metrics and holdings table.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	entry, err := h.deps.Holdings.Get(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Holdings unavailable")
	}
	h.render(w, http.StatusOK, h.pageData(entry, err))
}

// Refresh forces a new acquisition. On success it redirects to the dashboard;
// on failure the page is rendered directly so the failed fetch is not repeated.
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.deps.audit(services.AuditPortfolioRefreshed, middleware.ClientIP(r), r.UserAgent())

	entry, err := h.deps.Holdings.Refresh(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Refresh failed")
		h.render(w, http.StatusOK, h.pageData(entry, err))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RefreshLimited answers a rate-limited refresh with the last snapshot, if any,
// and a notice instead of starting another login.
func (h *DashboardHandler) RefreshLimited(w http.ResponseWriter, r *http.Request, err *apperrors.AppError) {
	h.log.Warn().Str("ip", middleware.ClientIP(r)).Msg("Refresh rate limited")

	data := h.pageData(h.deps.Holdings.Peek(), nil)
	data["Notice"] = "Refresh limited, try again shortly."
	h.render(w, apperrors.HTTPStatus(err), data)
}

func (h *DashboardHandler) render(w http.ResponseWriter, status int, data map[string]any) {
	render(w, h.log, h.deps.Templates, "dashboard.html", status, data)
}

func (h *DashboardHandler) pageData(entry *cache.Entry, err error) map[string]any {
	data := map[string]any{
		"Title":     "Dashboard",
		"Gated":     true,
		"Empty":     true,
		"FetchedAt": time.Time{},
		"ShowQR":    h.deps.DashboardURL != "",
	}
	if err != nil {
		data["Reason"] = reason(err)
	}

	if entry != nil && !entry.Snapshot.Empty() {
		data["Empty"] = false
		data["Holdings"] = entry.Snapshot.Holdings
		data["Summary"] = entry.Snapshot.Summary()
		data["FetchedAt"] = entry.FetchedAt
	} else if entry != nil {
		data["FetchedAt"] = entry.FetchedAt
	}
	return data
}
