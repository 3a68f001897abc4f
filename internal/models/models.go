// Package models contains the domain models for kitefolio.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Holding is one security position with its derived valuation fields.
type Holding struct {
	Symbol              string          `json:"symbol"`
	Exchange            string          `json:"exchange,omitempty"`
	ISIN                string          `json:"isin,omitempty"`
	Quantity            int64           `json:"quantity"` // negative for short positions
	AveragePrice        decimal.Decimal `json:"average_price"`
	LastPrice           decimal.Decimal `json:"last_price"`
	ClosePrice          decimal.Decimal `json:"close_price"`
	PnL                 decimal.Decimal `json:"pnl"`
	DayChange           decimal.Decimal `json:"day_change"`
	DayChangePercentage decimal.Decimal `json:"day_change_percentage"`

	// Derived, never fetched.
	InvestedValue decimal.Decimal `json:"invested_value"`
	CurrentValue  decimal.Decimal `json:"current_value"`
}

// WithDerived returns a copy with InvestedValue and CurrentValue computed from price and quantity.
func (h Holding) WithDerived() Holding {
	qty := decimal.NewFromInt(h.Quantity)
	h.InvestedValue = h.AveragePrice.Mul(qty)
	h.CurrentValue = h.LastPrice.Mul(qty)
	return h
}

// Summary holds portfolio-level totals.
type Summary struct {
	TotalInvested decimal.Decimal `json:"total_invested"`
	TotalCurrent  decimal.Decimal `json:"total_current"`
	PnL           decimal.Decimal `json:"pnl"`
	PnLPercent    decimal.Decimal `json:"pnl_percent"`
	Positions     int             `json:"positions"`
}

// Summarize totals a set of holdings. PnLPercent is 0 when nothing is invested.
func Summarize(holdings []Holding) Summary {
	s := Summary{Positions: len(holdings)}
	for _, h := range holdings {
		s.TotalInvested = s.TotalInvested.Add(h.InvestedValue)
		s.TotalCurrent = s.TotalCurrent.Add(h.CurrentValue)
	}
	s.PnL = s.TotalCurrent.Sub(s.TotalInvested)
	if !s.TotalInvested.IsZero() {
		s.PnLPercent = s.PnL.Div(s.TotalInvested).Mul(hundred)
	}
	return s
}

// Snapshot is one successful holdings fetch.
type Snapshot struct {
	Holdings  []Holding `json:"holdings"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Empty reports whether the snapshot carries no holdings.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Holdings) == 0
}

// Summary totals the snapshot holdings.
func (s *Snapshot) Summary() Summary {
	if s == nil {
		return Summary{}
	}
	return Summarize(s.Holdings)
}
