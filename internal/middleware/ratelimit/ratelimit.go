// Package ratelimit throttles mutating API calls per client IP.
package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// window is the length of one counting period.
const window = time.Minute

// Limiter counts requests per client in fixed one-minute windows.
type Limiter struct {
	mu           sync.Mutex
	clients      map[string]*clientWindow
	limit        int
	staleAfter   time.Duration
	now          func() time.Time
	stop         chan struct{}
	shutdownOnce sync.Once
	rejected     int64
}

type clientWindow struct {
	start time.Time
	count int
}

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	// StaleAfter drops clients idle for longer than this on cleanup.
	StaleAfter time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		StaleAfter:        10 * time.Minute,
	}
}

// NewLimiter creates a limiter and starts its cleanup goroutine. Call Stop to
// release it.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = def.StaleAfter
	}

	l := &Limiter{
		clients:    make(map[string]*clientWindow),
		limit:      config.RequestsPerMinute,
		staleAfter: config.StaleAfter,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	go l.cleanupLoop(config.CleanupInterval)
	return l
}

// Allow records a request from clientIP and reports whether it is within the
// limit. The second value is how long until the client's window resets.
func (l *Limiter) Allow(clientIP string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[clientIP]
	if !ok || now.Sub(w.start) >= window {
		l.clients[clientIP] = &clientWindow{start: now, count: 1}
		return true, window
	}

	w.count++
	retry := window - now.Sub(w.start)
	if w.count > l.limit {
		l.rejected++
		return false, retry
	}
	return true, retry
}

func (l *Limiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.removeStale()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) removeStale() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.staleAfter)
	removed := 0
	for ip, w := range l.clients {
		if w.start.Before(cutoff) {
			delete(l.clients, ip)
			removed++
		}
	}
	return removed
}

// ActiveClients returns the number of currently tracked clients
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Rejected returns how many requests were refused so far.
func (l *Limiter) Rejected() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rejected
}

// Stop gracefully shuts down the rate limiter cleanup goroutine
func (l *Limiter) Stop() {
	l.shutdownOnce.Do(func() { close(l.stop) })
}

// IsMutating reports whether the method changes server state.
func IsMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// Middleware limits mutating requests only; reads pass through untouched.
// onLimit is called for every rejected request and may be nil.
func (l *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(*http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsMutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			ok, retry := l.Allow(extractIP(r))
			if !ok {
				if onLimit != nil {
					onLimit(r)
				}
				secs := int(retry.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded, try again later"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
