package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"session-scheduler/pkg/response"
)

// IdleTTL is how long an unused bucket is kept. A bucket idle that long has
// refilled, so dropping it loses nothing.
const IdleTTL = 10 * time.Minute

// ClientLimiter keeps one token bucket per client key. Buckets expire after
// idle without use.
type ClientLimiter struct {
	clients *cache.Cache
	r       rate.Limit
	b       int
}

func NewClientLimiter(r rate.Limit, b int, idle time.Duration) *ClientLimiter {
	if minIdle := refillTime(r, b); idle < minIdle {
		idle = minIdle
	}
	return &ClientLimiter{
		clients: cache.New(idle, idle),
		r:       r,
		b:       b,
	}
}

// Limiter returns the bucket for key, creating it on first use. Every call
// extends the bucket's lifetime.
func (c *ClientLimiter) Limiter(key string) *rate.Limiter {
	if v, ok := c.clients.Get(key); ok {
		limiter := v.(*rate.Limiter)
		c.clients.SetDefault(key, limiter)
		return limiter
	}

	limiter := rate.NewLimiter(c.r, c.b)
	if err := c.clients.Add(key, limiter, cache.DefaultExpiration); err != nil {
		if v, ok := c.clients.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// Len is the number of live buckets.
func (c *ClientLimiter) Len() int {
	return c.clients.ItemCount()
}

func refillTime(r rate.Limit, b int) time.Duration {
	if r <= 0 || r == rate.Inf {
		return 0
	}
	return time.Duration(float64(b) / float64(r) * float64(time.Second))
}

// clientKey prefers the gateway-provided user id and falls back to the
// remote address.
func clientKey(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return "user:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}

func New(log *slog.Logger, rps float64, burst int) func(next http.Handler) http.Handler {
	limiter := NewClientLimiter(rate.Limit(rps), burst, IdleTTL)

	return func(next http.Handler) http.Handler {
		log := log.With(slog.String("component", "middleware/ratelimit"))

		fn := func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if !limiter.Limiter(key).Allow() {
				log.Warn("rate limit exceeded", slog.String("client", key), slog.String("path", r.URL.Path))
				w.WriteHeader(http.StatusTooManyRequests)
				render.JSON(w, r, response.Error(string(response.TOO_MANY_REQUESTS), "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(fn)
	}
}
