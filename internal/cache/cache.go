// Package cache memoizes the last successful holdings fetch for a fixed window.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"kitefolio/internal/models"
)

// Fetcher produces a fresh snapshot.
type Fetcher func(ctx context.Context) (*models.Snapshot, error)

// Entry is a cached snapshot and when it was fetched.
type Entry struct {
	Snapshot  *models.Snapshot
	FetchedAt time.Time
	TTL       time.Duration
}

// Fresh reports whether the entry is still valid at now.
func (e *Entry) Fresh(now time.Time) bool {
	return e != nil && now.Sub(e.FetchedAt) < e.TTL
}

// Cache holds at most one entry per key. The mutex is held across a fetch so
// concurrent callers wait for the running acquisition instead of starting another.
type Cache struct {
	key     string
	ttl     time.Duration
	fetch   Fetcher
	log     zerolog.Logger
	now     func() time.Time
	mu      sync.Mutex
	entries map[string]*Entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache for the account identified by key.
func New(key string, ttl time.Duration, fetch Fetcher, log zerolog.Logger, opts ...Option) *Cache {
	c := &Cache{
		key:     key,
		ttl:     ttl,
		fetch:   fetch,
		log:     log.With().Str("component", "cache").Logger(),
		now:     time.Now,
		entries: make(map[string]*Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached snapshot while fresh, fetching a new one otherwise.
// A failed fetch leaves any previous entry untouched.
func (c *Cache) Get(ctx context.Context) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e := c.entries[c.key]; e.Fresh(c.now()) {
		c.log.Debug().Str("key", c.key).Msg("Cache hit")
		return e, nil
	}
	return c.load(ctx)
}

// Refresh drops the entry and fetches unconditionally.
func (c *Cache) Refresh(ctx context.Context) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, c.key)
	return c.load(ctx)
}

// Invalidate drops the entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, c.key)
}

// Peek returns the entry without fetching, or nil.
func (c *Cache) Peek() *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[c.key]
}

// load must be called with mu held.
func (c *Cache) load(ctx context.Context) (*Entry, error) {
	c.log.Debug().Str("key", c.key).Msg("Cache miss")

	snap, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	e := &Entry{Snapshot: snap, FetchedAt: c.now(), TTL: c.ttl}
	c.entries[c.key] = e
	return e, nil
}
