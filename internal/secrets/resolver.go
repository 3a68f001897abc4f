package secrets

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	apperrors "kitefolio/internal/errors"
)

// Resolver selects a Bundle from a primary store, falling back wholesale to a second store.
// Values from the two stores are never mixed.
type Resolver struct {
	primary  Store
	fallback Store
	log      zerolog.Logger
}

// NewResolver creates a Resolver. fallback may be nil.
func NewResolver(primary, fallback Store, log zerolog.Logger) *Resolver {
	return &Resolver{
		primary:  primary,
		fallback: fallback,
		log:      log.With().Str("component", "secrets").Logger(),
	}
}

// Resolve returns a bundle holding every required key from exactly one store.
func (r *Resolver) Resolve(ctx context.Context, required ...string) (Bundle, error) {
	bundle, err := load(ctx, r.primary, required)
	if err == nil {
		r.log.Info().Str("source", bundle.Source()).Int("keys", len(required)).Msg("Credentials resolved")
		return bundle, nil
	}

	r.log.Warn().Err(err).Str("source", r.primary.Name()).Msg("Primary credential store unusable")
	if r.fallback == nil {
		return Bundle{}, apperrors.Wrap(apperrors.ErrConfiguration, "credentials could not be resolved", err)
	}

	bundle, ferr := load(ctx, r.fallback, required)
	if ferr != nil {
		return Bundle{}, apperrors.Wrap(apperrors.ErrConfiguration, "credentials could not be resolved", errors.Join(err, ferr))
	}

	r.log.Info().Str("source", bundle.Source()).Int("keys", len(required)).Msg("Credentials resolved from fallback")
	return bundle, nil
}
