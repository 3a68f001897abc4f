// Package broker defines the brokerage surface the login and holdings flows depend on.
package broker

import (
	"context"

	"kitefolio/internal/models"
)

// RequestToken is the single-use token carried by the login redirect.
type RequestToken string

// String redacts the token.
func (t RequestToken) String() string { return redact(string(t)) }

// AccessToken is the bearer credential for the holdings API.
// It lives for one fetch and is never persisted.
type AccessToken string

// String redacts the token.
func (t AccessToken) String() string { return redact(string(t)) }

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "[redacted]"
}

// Broker is the brokerage API.
type Broker interface {
	// LoginURL returns the authentication page for the configured account key.
	LoginURL() string

	// ExchangeToken trades a request token and the account secret for an access token.
	ExchangeToken(ctx context.Context, token RequestToken, apiSecret string) (AccessToken, error)

	// Holdings returns the account's positions as fetched, without derived fields.
	Holdings(ctx context.Context, token AccessToken) ([]models.Holding, error)
}
