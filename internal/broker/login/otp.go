package login

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// ErrEmptySeed is returned when no TOTP seed is configured.
var ErrEmptySeed = errors.New("totp seed is empty")

// GenerateOTP returns the 6-digit time-based code for seed at the given instant.
// Seeds are base32; spaces and lower case are tolerated.
func GenerateOTP(seed string, at time.Time) (string, error) {
	seed = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(seed), " ", ""))
	if seed == "" {
		return "", ErrEmptySeed
	}

	code, err := totp.GenerateCodeCustom(seed, at, totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("generating otp: %w", err)
	}
	return code, nil
}
