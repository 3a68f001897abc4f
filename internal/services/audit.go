package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditGateLogin       AuditAction = "gate.login"
	AuditGateLoginFailed AuditAction = "gate.login_failed"
	AuditGateLogout      AuditAction = "gate.logout"
	AuditGateRateLimited AuditAction = "gate.rate_limited"

	AuditPortfolioRefreshed AuditAction = "portfolio.refreshed"
)

// AuditEntry is one recorded dashboard action.
type AuditEntry struct {
	Action    AuditAction `json:"action"`
	IPAddress string      `json:"ip_address"`
	UserAgent string      `json:"user_agent"`
	CreatedAt time.Time   `json:"created_at"`
}

// AuditService writes audit events to the log and keeps the most recent in memory.
type AuditService struct {
	log zerolog.Logger
	now func() time.Time

	mu      sync.Mutex
	entries []AuditEntry
	limit   int
}

// NewAuditService creates an AuditService retaining up to limit entries.
func NewAuditService(log zerolog.Logger, limit int) *AuditService {
	if limit <= 0 {
		limit = 100
	}
	return &AuditService{
		log:   log.With().Str("component", "audit").Logger(),
		now:   time.Now,
		limit: limit,
	}
}

// LogAction records an action from the given client.
func (s *AuditService) LogAction(action AuditAction, ip, userAgent string) {
	entry := AuditEntry{
		Action:    action,
		IPAddress: ip,
		UserAgent: userAgent,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	if len(s.entries) > s.limit {
		s.entries = s.entries[len(s.entries)-s.limit:]
	}
	s.mu.Unlock()

	s.log.Info().
		Str("action", string(action)).
		Str("ip", ip).
		Str("user_agent", userAgent).
		Msg("Audit")
}

// GetRecent returns up to limit entries, newest first.
func (s *AuditService) GetRecent(limit int) []AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}
	out := make([]AuditEntry, 0, limit)
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.entries[i])
	}
	return out
}

// FormatEntry returns a human-readable description of an audit entry.
func FormatEntry(e AuditEntry) string {
	return fmt.Sprintf("[%s] %s from %s", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.IPAddress)
}
