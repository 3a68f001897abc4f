package login

import (
	"errors"
	"strings"

	"kitefolio/internal/broker"
)

const requestTokenParam = "request_token="

// ErrNoRequestToken is returned when an address carries no request token.
var ErrNoRequestToken = errors.New("no request token in redirect address")

// ExtractRequestToken returns the value between "request_token=" and the next "&"
// or the end of the address.
func ExtractRequestToken(url string) (broker.RequestToken, error) {
	_, rest, ok := strings.Cut(url, requestTokenParam)
	if !ok {
		return "", ErrNoRequestToken
	}
	value, _, _ := strings.Cut(rest, "&")
	if value == "" {
		return "", ErrNoRequestToken
	}
	return broker.RequestToken(value), nil
}
