package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "kitefolio/internal/errors"
)

// ErrTooManyRequests is returned to limited clients.
var ErrTooManyRequests = apperrors.RateLimited("too many requests, try again shortly")

// RateLimiter provides per-IP rate limiting.
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time

	// OnLimited is called for every rejected request.
	OnLimited func(r *http.Request)

	// Reject writes the response for a rejected request. Nil answers with a plain 429.
	Reject func(w http.ResponseWriter, r *http.Request, err *apperrors.AppError)

	stop     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter.
// r is requests per second, b is burst size. Call Close to stop the cleanup loop.
func NewRateLimiter(r float64, b int) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(r),
		burst:    b,
		idle:     3 * time.Minute,
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	go rl.cleanupLoop(time.Minute)

	return rl
}

// Close stops the background cleanup.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// getVisitor returns the rate limiter for an IP, creating one if needed.
func (rl *RateLimiter) getVisitor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = rl.now()
	return v.limiter
}

func (rl *RateLimiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

// evictIdle forgets visitors not seen within the idle window.
func (rl *RateLimiter) evictIdle() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	evicted := 0
	now := rl.now()
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idle {
			delete(rl.visitors, ip)
			evicted++
		}
	}
	return evicted
}

// Limit is middleware that rate limits requests by IP.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.getVisitor(ClientIP(r)).Allow() {
			if rl.OnLimited != nil {
				rl.OnLimited(r)
			}
			if rl.Reject != nil {
				rl.Reject(w, r, ErrTooManyRequests)
			} else {
				WriteError(w, ErrTooManyRequests)
			}
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewGateLimiter limits password attempts: 1 per 2 seconds with burst of 5.
func NewGateLimiter() *RateLimiter {
	return NewRateLimiter(0.5, 5)
}

// NewRefreshLimiter limits forced reacquisition, which drives a real browser login.
// Allows 1 per 30 seconds with burst of 2.
func NewRefreshLimiter() *RateLimiter {
	return NewRateLimiter(1.0/30, 2)
}

// ClientIP returns the host part of RemoteAddr. Forwarding headers are not read
// here; behind a proxy chi's RealIP middleware has already rewritten RemoteAddr.
func ClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
