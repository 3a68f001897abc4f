// Package secrets resolves the credential bundle from one authoritative backend.
package secrets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Names of the secrets the tool understands.
const (
	KeyAPIKey      = "API_KEY"
	KeyAPISecret   = "API_SECRET"
	KeyUserID      = "USER_ID"
	KeyPassword    = "PASSWORD"
	KeyTOTPKey     = "TOTP_KEY"
	KeyPIN         = "PIN"
	KeyAppPassword = "APP_PASSWORD"
)

// AcquisitionKeys are required to log in and fetch holdings.
var AcquisitionKeys = []string{KeyAPIKey, KeyAPISecret, KeyUserID, KeyPassword, KeyTOTPKey}

// DashboardKeys are required to serve the gated dashboard.
var DashboardKeys = append(append([]string{}, AcquisitionKeys...), KeyAppPassword)

// ErrNotFound is returned by a Store when a secret is absent.
var ErrNotFound = errors.New("secret not found")

// Store is a secret backend.
type Store interface {
	// Name identifies the backend in logs and errors.
	Name() string
	// Get returns the named secret or ErrNotFound.
	Get(ctx context.Context, name string) (string, error)
}

// MissingKeysError reports which required secrets a backend could not supply.
type MissingKeysError struct {
	Store string
	Keys  []string
}

func (e *MissingKeysError) Error() string {
	return fmt.Sprintf("%s is missing required secrets: %s", e.Store, strings.Join(e.Keys, ", "))
}

func (e *MissingKeysError) Unwrap() error {
	return ErrNotFound
}

// Bundle is an immutable set of named secrets taken from a single backend.
type Bundle struct {
	source string
	values map[string]string
}

// NewBundle copies values into a Bundle attributed to source.
func NewBundle(source string, values map[string]string) Bundle {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Bundle{source: source, values: copied}
}

// Source names the backend the bundle came from.
func (b Bundle) Source() string { return b.source }

// Lookup returns a secret and whether the bundle holds it.
func (b Bundle) Lookup(name string) (string, bool) {
	v, ok := b.values[name]
	return v, ok
}

// Value returns a secret, or "" when the bundle does not hold it.
func (b Bundle) Value(name string) string { return b.values[name] }

func (b Bundle) APIKey() string      { return b.values[KeyAPIKey] }
func (b Bundle) APISecret() string   { return b.values[KeyAPISecret] }
func (b Bundle) UserID() string      { return b.values[KeyUserID] }
func (b Bundle) Password() string    { return b.values[KeyPassword] }
func (b Bundle) TOTPKey() string     { return b.values[KeyTOTPKey] }
func (b Bundle) AppPassword() string { return b.values[KeyAppPassword] }

// Keys returns the sorted secret names held by the bundle.
func (b Bundle) Keys() []string {
	keys := make([]string, 0, len(b.values))
	for k := range b.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fingerprint is a stable, non-reversible identifier of the account the bundle belongs to.
func (b Bundle) Fingerprint() string {
	sum := sha256.Sum256([]byte(b.values[KeyAPIKey]))
	return hex.EncodeToString(sum[:6])
}

// String never includes secret values.
func (b Bundle) String() string {
	return fmt.Sprintf("secrets.Bundle{source=%s keys=%v}", b.source, b.Keys())
}

// GoString keeps %#v from printing values.
func (b Bundle) GoString() string { return b.String() }

// load reads every required key from one store. Empty values count as missing.
func load(ctx context.Context, store Store, required []string) (Bundle, error) {
	values := make(map[string]string, len(required))
	var missing []string
	for _, name := range required {
		v, err := store.Get(ctx, name)
		switch {
		case errors.Is(err, ErrNotFound):
			missing = append(missing, name)
		case err != nil:
			return Bundle{}, fmt.Errorf("%s: reading %s: %w", store.Name(), name, err)
		case v == "":
			missing = append(missing, name)
		default:
			values[name] = v
		}
	}
	if len(missing) > 0 {
		return Bundle{}, &MissingKeysError{Store: store.Name(), Keys: missing}
	}
	return Bundle{source: store.Name(), values: values}, nil
}
