package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	apperrors "kitefolio/internal/errors"
	"kitefolio/internal/models"
	"kitefolio/internal/services"
)

// PortfolioHandler serves holdings as JSON.
type PortfolioHandler struct {
	deps *Dependencies
	log  zerolog.Logger
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(deps *Dependencies) *PortfolioHandler {
	return &PortfolioHandler{deps: deps, log: deps.Log.With().Str("component", "api").Logger()}
}

// HoldingsResponse is the body of GET /api/holdings.
type HoldingsResponse struct {
	Holdings    []models.Holding     `json:"holdings"`
	Summary     models.Summary       `json:"summary"`
	Composition services.Composition `json:"composition"`
	FetchedAt   time.Time            `json:"fetched_at"`
	ExpiresAt   time.Time            `json:"expires_at"`
}

// GetHoldings returns the current snapshot, its summary and composition.
func (h *PortfolioHandler) GetHoldings(w http.ResponseWriter, r *http.Request) {
	entry, err := h.deps.Holdings.Get(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Holdings unavailable")
		writeJSON(w, h.log, apperrors.HTTPStatus(err), map[string]string{"error": reason(err)})
		return
	}

	holdings := entry.Snapshot.Holdings
	if holdings == nil {
		holdings = []models.Holding{}
	}

	writeJSON(w, h.log, http.StatusOK, HoldingsResponse{
		Holdings:    holdings,
		Summary:     entry.Snapshot.Summary(),
		Composition: services.Compose(entry.Snapshot),
		FetchedAt:   entry.FetchedAt,
		ExpiresAt:   entry.FetchedAt.Add(entry.TTL),
	})
}
