// Package auth provides the dashboard password gate and its sessions.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultSessionDuration is the default gate session lifetime.
	DefaultSessionDuration = 12 * time.Hour

	// BcryptCost is the bcrypt hashing cost.
	BcryptCost = 12
)

var (
	// ErrInvalidCredentials is returned when the gate password is wrong.
	ErrInvalidCredentials = errors.New("invalid password")

	// ErrSessionExpired is returned when a session has expired.
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionNotFound is returned when a session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")
)

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword compares a password with a hash.
func CheckPassword(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Gate checks the single dashboard password. Only the hash is kept.
type Gate struct {
	hash string
}

// NewGate hashes password once at startup.
func NewGate(password string) (*Gate, error) {
	if password == "" {
		return nil, errors.New("gate password is empty")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &Gate{hash: hash}, nil
}

// Check returns ErrInvalidCredentials unless password matches.
func (g *Gate) Check(password string) error {
	if !CheckPassword(password, g.hash) {
		return ErrInvalidCredentials
	}
	return nil
}

// Session is a passed gate.
type Session struct {
	ID        string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the session is past its expiry at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionManager keeps gate sessions in memory; a restart logs everyone out.
type SessionManager struct {
	duration time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		duration: DefaultSessionDuration,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// WithDuration sets a custom session duration.
func (sm *SessionManager) WithDuration(d time.Duration) *SessionManager {
	sm.duration = d
	return sm
}

// Create starts a new session.
func (sm *SessionManager) Create() (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	now := sm.now()
	session := &Session{
		ID:        id,
		ExpiresAt: now.Add(sm.duration),
		CreatedAt: now,
	}

	sm.mu.Lock()
	sm.sessions[id] = session
	sm.mu.Unlock()

	return session, nil
}

// Validate checks that a session exists and has not expired.
func (sm *SessionManager) Validate(id string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, ok := sm.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if session.IsExpired(sm.now()) {
		delete(sm.sessions, id)
		return ErrSessionExpired
	}
	return nil
}

// Delete removes a session by ID.
func (sm *SessionManager) Delete(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, id)
}

// CleanExpired removes all expired sessions and returns the count.
func (sm *SessionManager) CleanExpired() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	count := 0
	for id, s := range sm.sessions {
		if s.IsExpired(now) {
			delete(sm.sessions, id)
			count++
		}
	}
	return count
}

// generateSessionID creates a cryptographically secure session ID.
func generateSessionID() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
