// Package handlers provides HTTP handlers for the kitefolio dashboard.
package handlers

import (
	"context"

	"github.com/rs/zerolog"

	"kitefolio/internal/auth"
	"kitefolio/internal/cache"
	"kitefolio/internal/middleware"
	"kitefolio/internal/services"
	"kitefolio/web"
)

// SnapshotSource serves the memoized holdings snapshot.
type SnapshotSource interface {
	Get(ctx context.Context) (*cache.Entry, error)
	Refresh(ctx context.Context) (*cache.Entry, error)
	Peek() *cache.Entry
}

// Dependencies holds all handler dependencies.
type Dependencies struct {
	Templates web.TemplateCache
	Log       zerolog.Logger

	Gate           *auth.Gate
	SessionManager *auth.SessionManager
	GateMiddleware *middleware.GateMiddleware

	Holdings     SnapshotSource
	AuditService *services.AuditService

	// DashboardURL is the public address encoded in the QR code.
	DashboardURL string
}

// NewDependencies creates an empty Dependencies container.
func NewDependencies() *Dependencies {
	return &Dependencies{Log: zerolog.Nop()}
}

// WithTemplates sets the template map.
func (d *Dependencies) WithTemplates(t web.TemplateCache) *Dependencies {
	d.Templates = t
	return d
}

// WithLogger sets the logger.
func (d *Dependencies) WithLogger(log zerolog.Logger) *Dependencies {
	d.Log = log
	return d
}

// WithGate sets the password gate and its session handling.
func (d *Dependencies) WithGate(g *auth.Gate, sm *auth.SessionManager, m *middleware.GateMiddleware) *Dependencies {
	d.Gate = g
	d.SessionManager = sm
	d.GateMiddleware = m
	return d
}

// WithHoldings sets the snapshot source.
func (d *Dependencies) WithHoldings(s SnapshotSource) *Dependencies {
	d.Holdings = s
	return d
}

// WithAuditService sets the audit service.
func (d *Dependencies) WithAuditService(s *services.AuditService) *Dependencies {
	d.AuditService = s
	return d
}

// WithDashboardURL sets the public dashboard address.
func (d *Dependencies) WithDashboardURL(url string) *Dependencies {
	d.DashboardURL = url
	return d
}

func (d *Dependencies) audit(action services.AuditAction, ip, userAgent string) {
	if d.AuditService != nil {
		d.AuditService.LogAction(action, ip, userAgent)
	}
}
