// Package kite provides the Zerodha Kite Connect implementation of broker.Broker.
package kite

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"kitefolio/internal/broker"
	"kitefolio/internal/models"
)

const httpClientTimeout = 30 * time.Second

var (
	// ErrNoAccessToken indicates the session endpoint answered without a token.
	ErrNoAccessToken = errors.New("no access token in session response")

	// ErrEmptyRequestToken indicates an exchange was attempted without a token.
	ErrEmptyRequestToken = errors.New("request token is empty")
)

// Client talks to the Kite Connect API for one account key.
type Client struct {
	apiKey     string
	baseURI    string
	httpClient *http.Client
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURI points the API calls at another root, e.g. a test server.
func WithBaseURI(uri string) Option {
	return func(c *Client) { c.baseURI = uri }
}

// WithHTTPClient replaces the HTTP client used for API calls.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// New creates a Kite client for apiKey.
func New(apiKey string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: httpClientTimeout},
		log:        log.With().Str("component", "kite").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ broker.Broker = (*Client)(nil)

// newConn builds a fresh library client so access tokens are never shared between calls.
func (c *Client) newConn() *kiteconnect.Client {
	kc := kiteconnect.New(c.apiKey)
	kc.SetHTTPClient(c.httpClient)
	if c.baseURI != "" {
		kc.SetBaseURI(c.baseURI)
	}
	return kc
}

// LoginURL returns the Kite login page for the account key.
func (c *Client) LoginURL() string {
	return c.newConn().GetLoginURL()
}

// ExchangeToken trades a request token for an access token.
func (c *Client) ExchangeToken(ctx context.Context, token broker.RequestToken, apiSecret string) (broker.AccessToken, error) {
	if token == "" {
		return "", ErrEmptyRequestToken
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	session, err := c.newConn().GenerateSession(string(token), apiSecret)
	if err != nil {
		return "", fmt.Errorf("generating session: %w", err)
	}
	if session.AccessToken == "" {
		return "", ErrNoAccessToken
	}

	c.log.Info().Msg("Access token generated")
	return broker.AccessToken(session.AccessToken), nil
}

// Holdings fetches the account positions.
func (c *Client) Holdings(ctx context.Context, token broker.AccessToken) ([]models.Holding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kc := c.newConn()
	kc.SetAccessToken(string(token))

	rows, err := kc.GetHoldings()
	if err != nil {
		return nil, fmt.Errorf("fetching holdings: %w", err)
	}

	holdings := make([]models.Holding, 0, len(rows))
	for _, row := range rows {
		holdings = append(holdings, toHolding(row))
	}

	c.log.Debug().Int("count", len(holdings)).Msg("Holdings fetched")
	return holdings, nil
}

func toHolding(h kiteconnect.Holding) models.Holding {
	return models.Holding{
		Symbol:              h.Tradingsymbol,
		Exchange:            h.Exchange,
		ISIN:                h.ISIN,
		Quantity:            int64(h.Quantity),
		AveragePrice:        decimal.NewFromFloat(h.AveragePrice),
		LastPrice:           decimal.NewFromFloat(h.LastPrice),
		ClosePrice:          decimal.NewFromFloat(h.ClosePrice),
		PnL:                 decimal.NewFromFloat(h.PnL),
		DayChange:           decimal.NewFromFloat(h.DayChange),
		DayChangePercentage: decimal.NewFromFloat(h.DayChangePercentage),
	}
}
