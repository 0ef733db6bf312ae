package http

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/example/cleaning-ops/internal/logging"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// RequestLogger attaches a request id and a request scoped logger to every
// request. An incoming X-Request-ID is reused.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	base = defaultLogger(base)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if id == "" {
				id = logging.NewRequestID()
			}
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := logging.ContextWithRequestID(ContextWithLogger(r.Context(), logger), id)
			w.Header().Set(RequestIDHeader, id)

			start := time.Now()
			logger.InfoContext(ctx, "request started")
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "status", sw.status, "duration", time.Since(start))
		})
	}
}

// RateLimitConfig sets the per client token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	// TTL is how long an idle client limiter is kept.
	TTL time.Duration
	// TrustedProxies lists peers whose X-Forwarded-For is believed. Requests
	// from any other peer are keyed on the connection address alone.
	TrustedProxies []netip.Prefix
	Now            func() time.Time
}

// RateLimit limits requests per client IP. A non-positive rate disables it.
func RateLimit(cfg RateLimitConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		if cfg.RequestsPerSecond <= 0 {
			return next
		}

		limiters := newClientLimiters(cfg)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r, cfg.TrustedProxies)
			if !limiters.allow(key) {
				w.Header().Set("Retry-After", "1")
				responder.writeError(r.Context(), w, http.StatusTooManyRequests, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters holds one bucket per client. A bucket idle for longer than
// ttl is forgotten; idle buckets are swept at most once per ttl.
type clientLimiters struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
	clients   map[string]*clientLimiter
}

func newClientLimiters(cfg RateLimitConfig) *clientLimiters {
	l := &clientLimiters{
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		ttl:     cfg.TTL,
		now:     cfg.Now,
		clients: make(map[string]*clientLimiter),
	}
	if l.ttl <= 0 {
		l.ttl = 5 * time.Minute
	}
	if l.burst <= 0 {
		l.burst = 1
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

func (l *clientLimiters) allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.ttl {
		l.sweepLocked(now)
	}
	client, ok := l.clients[key]
	if !ok || now.Sub(client.lastSeen) > l.ttl {
		client = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = client
	}
	client.lastSeen = now
	return client.limiter.AllowN(now, 1)
}

func (l *clientLimiters) sweepLocked(now time.Time) {
	for key, client := range l.clients {
		if now.Sub(client.lastSeen) > l.ttl {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}

func (l *clientLimiters) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// clientIP returns the connection address. When that peer is a trusted
// proxy, X-Forwarded-For is walked right to left and the first hop that is
// not itself trusted is used instead.
func clientIP(r *http.Request, trusted []netip.Prefix) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if len(trusted) == 0 || !isTrusted(host, trusted) {
		return host
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if _, err := netip.ParseAddr(hop); err != nil {
			return host
		}
		if !isTrusted(hop, trusted) {
			return hop
		}
	}
	return host
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
