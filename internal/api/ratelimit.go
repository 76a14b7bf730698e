package api

import (
	"net"
	"net/http"
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a per-client-IP token bucket.
type Limiter struct {
	mu        sync.Mutex
	rate      float64 // tokens/sec
	burst     float64
	cost      float64
	clients   map[string]*bucket
	ttl       time.Duration
	lastPrune time.Time
	now       func() time.Time
}

func NewLimiter(rate float64, burst float64, cost float64) *Limiter {
	return &Limiter{
		rate:      rate,
		burst:     burst,
		cost:      cost,
		clients:   make(map[string]*bucket),
		ttl:       10 * time.Minute,
		lastPrune: time.Now().UTC(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// NewPerMinuteLimiter allows perMinute requests per client with the given burst.
// It returns nil when perMinute is 0, which disables limiting.
func NewPerMinuteLimiter(perMinute, burst int) *Limiter {
	if perMinute <= 0 {
		return nil
	}
	return NewLimiter(float64(perMinute)/60, float64(burst), 1)
}

func (l *Limiter) Allow(r *http.Request) bool {
	ip := clientIP(r)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(now)

	b, ok := l.clients[ip]
	if !ok {
		b = &bucket{tokens: l.burst, last: now}
		l.clients[ip] = b
	}

	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * l.rate
		if b.tokens > l.burst {
			b.tokens = l.burst
		}
		b.last = now
	}

	if b.tokens < l.cost {
		return false
	}
	b.tokens -= l.cost
	return true
}

// Middleware rejects over-limit requests to the listed paths with 429.
// A nil Limiter passes everything through.
func (l *Limiter) Middleware(paths map[string]bool, next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if paths[r.URL.Path] && !l.Allow(r) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *Limiter) pruneLocked(now time.Time) {
	if now.Sub(l.lastPrune) < 2*time.Minute {
		return
	}
	l.lastPrune = now

	for ip, b := range l.clients {
		if now.Sub(b.last) > l.ttl {
			delete(l.clients, ip)
		}
	}
}

func clientIP(r *http.Request) string {
	// X-Forwarded-For is not trusted; it can be spoofed.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
