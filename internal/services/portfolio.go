// Package services contains business logic for kitefolio.
package services

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"kitefolio/internal/broker"
	apperrors "kitefolio/internal/errors"
	"kitefolio/internal/models"
	"kitefolio/internal/secrets"
)

// Acquirer obtains a fresh access token for a credential bundle.
type Acquirer interface {
	Acquire(ctx context.Context, bundle secrets.Bundle) (broker.AccessToken, error)
}

// PortfolioService runs session acquisition and the holdings fetch for one account.
type PortfolioService struct {
	acquirer Acquirer
	broker   broker.Broker
	bundle   secrets.Bundle
	now      func() time.Time
	log      zerolog.Logger
}

// NewPortfolioService creates a PortfolioService for the account in bundle.
func NewPortfolioService(acquirer Acquirer, b broker.Broker, bundle secrets.Bundle, log zerolog.Logger) *PortfolioService {
	return &PortfolioService{
		acquirer: acquirer,
		broker:   b,
		bundle:   bundle,
		now:      time.Now,
		log:      log.With().Str("component", "portfolio").Logger(),
	}
}

// Fingerprint identifies the account without exposing its key.
func (s *PortfolioService) Fingerprint() string {
	return s.bundle.Fingerprint()
}

// Fetch logs in and returns the current holdings with derived values.
// Automation failures keep their kind; API failures become upstream errors.
func (s *PortfolioService) Fetch(ctx context.Context) (*models.Snapshot, error) {
	token, err := s.acquirer.Acquire(ctx, s.bundle)
	if err != nil {
		return nil, err
	}

	rows, err := s.broker.Holdings(ctx, token)
	if err != nil {
		return nil, apperrors.Upstream("could not fetch holdings", err)
	}

	holdings := make([]models.Holding, len(rows))
	for i, h := range rows {
		holdings[i] = h.WithDerived()
	}

	s.log.Info().Int("positions", len(holdings)).Msg("Holdings fetched")
	return &models.Snapshot{Holdings: holdings, FetchedAt: s.now()}, nil
}

// FetchOrEmpty never fails: on any error it logs the cause and returns an empty
// snapshot alongside the error so callers can show why there is no data.
func (s *PortfolioService) FetchOrEmpty(ctx context.Context) (*models.Snapshot, error) {
	snap, err := s.Fetch(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("stage", failedStage(err)).Msg("Portfolio fetch failed")
		return &models.Snapshot{}, err
	}
	return snap, nil
}

func failedStage(err error) string {
	switch {
	case apperrors.IsAutomation(err):
		return "login"
	case apperrors.IsUpstream(err):
		return "holdings"
	default:
		return "unknown"
	}
}

// Composition is the breakdown of a snapshot by current value.
type Composition struct {
	TotalValue       decimal.Decimal     `json:"total_value"`
	Holdings         []HoldingAllocation `json:"holdings"`
	TopHolding       *HoldingAllocation  `json:"top_holding,omitempty"`
	ConcentrationPct decimal.Decimal     `json:"concentration_pct"` // top 5 holdings
}

// HoldingAllocation is one holding's share of the portfolio.
type HoldingAllocation struct {
	Symbol     string          `json:"symbol"`
	Value      decimal.Decimal `json:"value"`
	Percentage decimal.Decimal `json:"percentage"`
	PnL        decimal.Decimal `json:"pnl"`
}

const concentrationTop = 5

var hundred = decimal.NewFromInt(100)

// Compose calculates each holding's weight, largest first. Holdings with a
// non-positive current value are listed with zero weight.
func Compose(snap *models.Snapshot) Composition {
	var comp Composition
	if snap.Empty() {
		return comp
	}

	for _, h := range snap.Holdings {
		if h.CurrentValue.IsPositive() {
			comp.TotalValue = comp.TotalValue.Add(h.CurrentValue)
		}
	}

	comp.Holdings = make([]HoldingAllocation, 0, len(snap.Holdings))
	for _, h := range snap.Holdings {
		a := HoldingAllocation{Symbol: h.Symbol, Value: h.CurrentValue, PnL: h.CurrentValue.Sub(h.InvestedValue)}
		if comp.TotalValue.IsPositive() && h.CurrentValue.IsPositive() {
			a.Percentage = h.CurrentValue.Div(comp.TotalValue).Mul(hundred)
		}
		comp.Holdings = append(comp.Holdings, a)
	}

	sort.SliceStable(comp.Holdings, func(i, j int) bool {
		return comp.Holdings[i].Value.GreaterThan(comp.Holdings[j].Value)
	})

	comp.TopHolding = &comp.Holdings[0]
	for i := 0; i < len(comp.Holdings) && i < concentrationTop; i++ {
		comp.ConcentrationPct = comp.ConcentrationPct.Add(comp.Holdings[i].Percentage)
	}
	return comp
}
