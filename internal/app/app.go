// Package app wires configuration, credentials and the acquisition pipeline
// shared by the kitefolio binaries.
package app

import (
	"context"

	"github.com/rs/zerolog"

	"kitefolio/internal/broker/browser"
	"kitefolio/internal/broker/kite"
	"kitefolio/internal/broker/login"
	"kitefolio/internal/config"
	"kitefolio/internal/secrets"
	"kitefolio/internal/services"
)

// PrimaryStore returns the store named by SECRETS_SOURCE.
func PrimaryStore(ctx context.Context, cfg *config.Config) (secrets.Store, error) {
	if cfg.SecretsSource == config.SecretsSourceS3 {
		return secrets.NewS3Store(ctx, cfg.SecretsS3Bucket, cfg.SecretsS3Key)
	}
	return secrets.NewEnvStore(cfg.SecretsEnvPrefix), nil
}

// ResolveSecrets resolves the required keys from the primary store, falling back
// to the dotenv secrets file.
func ResolveSecrets(ctx context.Context, cfg *config.Config, log zerolog.Logger, required []string) (secrets.Bundle, error) {
	primary, err := PrimaryStore(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Primary credential store unavailable, using secrets file")
		return secrets.NewResolver(secrets.NewFileStore(cfg.SecretsFile), nil, log).Resolve(ctx, required...)
	}

	var fallback secrets.Store
	if cfg.SecretsFile != "" {
		fallback = secrets.NewFileStore(cfg.SecretsFile)
	}
	return secrets.NewResolver(primary, fallback, log).Resolve(ctx, required...)
}

// NewPortfolioService builds the Kite client, the headless login and the
// holdings service for bundle.
func NewPortfolioService(cfg *config.Config, bundle secrets.Bundle, log zerolog.Logger) *services.PortfolioService {
	var opts []kite.Option
	if cfg.KiteBaseURI != "" {
		opts = append(opts, kite.WithBaseURI(cfg.KiteBaseURI))
	}
	client := kite.New(bundle.APIKey(), log, opts...)

	launcher := browser.NewChromeLauncher(browser.ChromeOptions{ExecPath: cfg.ChromePath}, log)
	acquirer := login.NewAcquirer(client, launcher, login.Options{
		Wait:            cfg.LoginWait,
		TransitionPause: cfg.LoginTransitionPause,
		ScreenshotPath:  cfg.LoginScreenshot,
	}, log)

	return services.NewPortfolioService(acquirer, client, bundle, log)
}
