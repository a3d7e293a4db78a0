package server

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"careerflow/internal/errors"
	"careerflow/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

const defaultLimiterEvictionAge = 10 * time.Minute

// RateLimiter keeps one token bucket per key (client IP or API key). Idle
// buckets are evicted after the configured window so the map does not grow
// with every client ever seen.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
	seen     map[string]time.Time
	rate     rate.Limit
	burst    int
	evictAge time.Duration
	done     chan struct{}
	logger   *errors.Logger
}

// NewRateLimiter creates a rate limiter allowing requestsPerMin requests per
// minute with the given burst capacity. The window sets how long an idle
// key's bucket is kept; zero falls back to ten minutes.
func NewRateLimiter(requestsPerMin int, window time.Duration, burstCapacity int, logger *errors.Logger) *RateLimiter {
	if window <= 0 {
		window = defaultLimiterEvictionAge
	}

	rl := &RateLimiter{
		buckets:  make(map[string]*rate.Limiter),
		seen:     make(map[string]time.Time),
		rate:     rate.Limit(float64(requestsPerMin) / 60.0),
		burst:    burstCapacity,
		evictAge: window,
		done:     make(chan struct{}),
		logger:   logger,
	}

	go rl.sweepLoop()
	return rl
}

// GetLimiter retrieves or creates the bucket for a key, marking it live for
// the eviction sweep
func (rl *RateLimiter) GetLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, ok := rl.buckets[key]
	if !ok {
		bucket = rate.NewLimiter(rl.rate, rl.burst)
		rl.buckets[key] = bucket
	}
	rl.seen[key] = time.Now()

	return bucket
}

// Allow reports whether a request for the given key fits its budget right
// now. Non-blocking.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.GetLimiter(key).Allow()
}

// GetStats reports the live bucket count and the configured budget, for the
// status endpoint
func (rl *RateLimiter) GetStats() map[string]any {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]any{
		"active_limiters": len(rl.buckets),
		"rate_per_second": float64(rl.rate),
		"rate_per_minute": float64(rl.rate) * 60.0,
		"burst_capacity":  rl.burst,
	}
}

// sweepLoop periodically evicts limiters for keys not seen within the
// eviction window
func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.evictAge)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.done:
			return
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, last := range rl.seen {
		if now.Sub(last) > rl.evictAge {
			delete(rl.buckets, key)
			delete(rl.seen, key)
		}
	}

	rl.logger.Debug("Rate limiter sweep completed",
		"remaining_limiters", len(rl.buckets))
}

// Close stops the sweep goroutine. Should be called when shutting down the server.
func (rl *RateLimiter) Close() {
	close(rl.done)
}

// createRateLimitMiddleware enforces per-key budgets ahead of the handlers
// and counts every rejection in the shared metrics. With rate limiting
// disabled it passes requests straight through.
func (s *Server) createRateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	if s.RateLimit == nil || !s.RateLimit.Enabled {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
			if key == "" || s.RateLimiter.Allow(key) {
				next(w, r)
				return
			}

			s.Logger.Info("Rate limit exceeded",
				"key", maskRateLimitKey(key),
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			om.GetMetrics().RecordRateLimitHit(r.Context(), om,
				attribute.String("endpoint", r.URL.Path),
				attribute.String("method", r.Method))
			w.Header().Set("Retry-After", "1")
			writeErrorResponse(w, "Rate limit exceeded", "Too many requests", http.StatusTooManyRequests)
		}
	}
}

// rateLimitKey derives the bucket key for a request. API key identity wins
// over IP identity when both are enabled.
func rateLimitKey(r *http.Request, byAPIKey, byIP bool) string {
	if byAPIKey {
		if apiKey := requestAPIKey(r); apiKey != "" {
			return "api:" + apiKey
		}
	}
	if byIP {
		return "ip:" + getClientIP(r)
	}
	return ""
}

// maskRateLimitKey hides API key material in logs; IP keys pass through
func maskRateLimitKey(key string) string {
	if after, ok := strings.CutPrefix(key, "api:"); ok {
		return "api:" + maskAPIKey(after)
	}
	return key
}

// getClientIP extracts the client IP address from the request. The first
// valid address in X-Forwarded-For wins, then X-Real-IP, then the socket
// address.
func getClientIP(r *http.Request) string {
	for ip := range strings.SplitSeq(r.Header.Get("X-Forwarded-For"), ",") {
		ip = strings.TrimSpace(ip)
		if _, err := netip.ParseAddr(ip); err == nil {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if _, err := netip.ParseAddr(xri); err == nil {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
