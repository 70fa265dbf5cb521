package web

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/blockedby/resume-refresh/internal/logger"
	"github.com/blockedby/resume-refresh/internal/metrics"
)

// RateLimitMessage is the error body returned once a client runs out of requests.
const RateLimitMessage = "Too many requests from this IP, please try again later."

// RateLimiter allows each client IP Max requests per Window, refilled evenly.
type RateLimiter struct {
	name   string
	window time.Duration
	max    int
	log    *logger.Logger
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*client
	swept   time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter. A non-positive max disables limiting.
func NewRateLimiter(name string, window time.Duration, max int, log *logger.Logger) *RateLimiter {
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &RateLimiter{
		name:    name,
		window:  window,
		max:     max,
		log:     log,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

// Allow reports whether key may make another request, and otherwise how long until it may.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	if l.max <= 0 {
		return true, 0
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rate.Every(l.window/time.Duration(l.max)), l.max)}
		l.clients[key] = c
	}
	c.lastSeen = now

	res := c.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, l.window
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// sweep drops clients idle for a full window, at most once per window.
func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.swept) < l.window {
		return
	}
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) >= l.window {
			delete(l.clients, key)
		}
	}
	l.swept = now
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ClientIP(r)
		allowed, retryAfter := l.Allow(key)
		if allowed {
			next.ServeHTTP(w, r)
			return
		}

		metrics.IncRateLimitExceeded(l.name)
		l.log.Warn().
			Str("limiter", l.name).
			Str("ip", key).
			Dur("retry_after", retryAfter).
			Msg("rate limit exceeded")

		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"success": false,
			"error":   RateLimitMessage,
		})
	})
}

// ClientIP returns the request's remote host. middleware.RealIP has already
// replaced RemoteAddr from the forwarding headers.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
