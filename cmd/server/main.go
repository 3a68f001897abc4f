package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"kitefolio/internal/app"
	"kitefolio/internal/auth"
	"kitefolio/internal/cache"
	"kitefolio/internal/config"
	apperrors "kitefolio/internal/errors"
	"kitefolio/internal/handlers"
	"kitefolio/internal/logger"
	"kitefolio/internal/middleware"
	"kitefolio/internal/secrets"
	"kitefolio/internal/services"
	"kitefolio/web"
)

const (
	auditLimit           = 200
	sessionCleanupPeriod = 15 * time.Minute
)

// App holds the application dependencies.
type App struct {
	config         *config.Config
	log            zerolog.Logger
	router         *chi.Mux
	gateMiddleware *middleware.GateMiddleware
	gateLimiter    *middleware.RateLimiter
	refreshLimiter *middleware.RateLimiter
	auditService   *services.AuditService

	authHandler      *handlers.AuthHandler
	dashHandler      *handlers.DashboardHandler
	portfolioHandler *handlers.PortfolioHandler
	toolsHandler     *handlers.ToolsHandler
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New(logger.Config{})
		l.Error().Err(err).Msg("Invalid configuration")
		return apperrors.ExitCode(err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)

	ctx := context.Background()
	bundle, err := app.ResolveSecrets(ctx, cfg, log, secrets.DashboardKeys)
	if err != nil {
		log.Error().Err(err).Msg("Credentials unavailable")
		return apperrors.ExitCode(err)
	}

	gate, err := auth.NewGate(bundle.AppPassword())
	if err != nil {
		log.Error().Err(err).Msg("Password gate not configured")
		return 2
	}

	templates, err := web.ParseTemplates(handlers.TemplateFuncs())
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse templates")
		return 1
	}

	portfolio := app.NewPortfolioService(cfg, bundle, log)
	holdings := cache.New(portfolio.Fingerprint(), cfg.CacheTTL, portfolio.Fetch, log)

	sessionManager := auth.NewSessionManager()
	gateMiddleware := middleware.NewGateMiddleware(sessionManager, !cfg.IsDevelopment)
	auditService := services.NewAuditService(log, auditLimit)

	deps := handlers.NewDependencies().
		WithLogger(log).
		WithTemplates(templates).
		WithGate(gate, sessionManager, gateMiddleware).
		WithHoldings(holdings).
		WithAuditService(auditService).
		WithDashboardURL(cfg.DashboardURL)

	a := &App{
		config:           cfg,
		log:              log,
		gateMiddleware:   gateMiddleware,
		gateLimiter:      middleware.NewGateLimiter(),
		refreshLimiter:   middleware.NewRefreshLimiter(),
		auditService:     auditService,
		authHandler:      handlers.NewAuthHandler(deps),
		dashHandler:      handlers.NewDashboardHandler(deps),
		portfolioHandler: handlers.NewPortfolioHandler(deps),
		toolsHandler:     handlers.NewToolsHandler(deps),
	}
	defer a.gateLimiter.Close()
	defer a.refreshLimiter.Close()

	a.setupRouter()

	stopCleanup := make(chan struct{})
	defer close(stopCleanup)
	go cleanSessions(sessionManager, log, stopCleanup)

	// Acquisition can take several browser waits, so writes get a long deadline.
	server := &http.Server{
		Addr:         cfg.Address(),
		Handler:      a.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", "http://"+cfg.Address()).Str("credentials", bundle.Source()).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		log.Error().Err(err).Msg("Server error")
		return 1
	case <-quit:
	}
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return 1
	}

	log.Info().Msg("Server stopped")
	return 0
}

func (a *App) setupRouter() {
	r := chi.NewRouter()

	// Chi middleware (aliased as chimw to avoid conflict with our middleware package)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(a.log))
	r.Use(middleware.SecurityHeaders)
	r.Use(a.gateMiddleware.LoadSession)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.Static()))))

	r.Get("/health", a.toolsHandler.Health)

	a.gateLimiter.OnLimited = func(r *http.Request) {
		a.auditService.LogAction(services.AuditGateRateLimited, middleware.ClientIP(r), r.UserAgent())
	}

	a.refreshLimiter.Reject = a.dashHandler.RefreshLimited

	// Rate limited to slow down password guessing
	r.Group(func(r chi.Router) {
		r.Use(a.gateMiddleware.RedirectIfPassed)
		r.Use(a.gateLimiter.Limit)
		r.Get("/login", a.authHandler.LoginPage)
		r.Post("/login", a.authHandler.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.gateMiddleware.RequireGate)
		r.Use(middleware.NoStore)

		r.Get("/", a.dashHandler.Dashboard)
		r.With(a.refreshLimiter.Limit).Post("/refresh", a.dashHandler.Refresh)
		r.Get("/qr.png", a.toolsHandler.QRCode)
		r.Post("/logout", a.authHandler.Logout)

		r.Route("/api", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   a.config.CORSOrigins,
				AllowedMethods:   []string{http.MethodGet},
				AllowCredentials: true,
				MaxAge:           300,
			}))
			r.Get("/holdings", a.portfolioHandler.GetHoldings)
		})
	})

	a.router = r
}

func cleanSessions(sm *auth.SessionManager, log zerolog.Logger, stop <-chan struct{}) {
	ticker := time.NewTicker(sessionCleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := sm.CleanExpired(); n > 0 {
				log.Debug().Int("removed", n).Msg("Expired gate sessions removed")
			}
		case <-stop:
			return
		}
	}
}
