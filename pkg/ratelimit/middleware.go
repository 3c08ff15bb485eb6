package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/render"

	"github.com/tendant/simple-mfa/pkg/clock"
	mfaerrors "github.com/tendant/simple-mfa/pkg/errors"
)

// Config holds per-client rate limiting configuration
type Config struct {
	Capacity   int     // Max burst per client
	RefillRate float64 // Requests per second per client

	// Bucket TTL (how long to keep inactive buckets in memory)
	BucketTTL time.Duration

	// TrustProxyHeaders keys clients by X-Forwarded-For / X-Real-IP instead
	// of the connection address
	TrustProxyHeaders bool

	// Headers to include in response
	IncludeHeaders bool

	// Clock is the time source, defaults to the wall clock
	Clock clock.Clock
}

// DefaultConfig allows a burst of 5 verification attempts per client and 5 more per minute
func DefaultConfig() *Config {
	return &Config{
		Capacity:       5,
		RefillRate:     5.0 / 60.0,
		BucketTTL:      1 * time.Hour,
		IncludeHeaders: true,
	}
}

// Middleware holds the rate limiting middleware state
type Middleware struct {
	config  *Config
	limiter *RateLimiter
}

// NewMiddleware creates a new rate limiting middleware
func NewMiddleware(config *Config) *Middleware {
	if config == nil {
		config = DefaultConfig()
	}
	c := config.Clock
	if c == nil {
		c = clock.Real()
	}

	return &Middleware{
		config:  config,
		limiter: NewRateLimiterWithClock(config.Capacity, config.RefillRate, config.BucketTTL, c),
	}
}

// Handler returns the rate limiting middleware handler
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := m.clientIP(r)
		key := ip + ":" + r.Method + " " + r.URL.Path

		if !m.limiter.Allow(key) {
			m.rateLimitExceeded(w, r, ip)
			return
		}

		if m.config.IncludeHeaders {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.config.Capacity))
		}

		next.ServeHTTP(w, r)
	})
}

// Run removes idle client buckets until ctx is cancelled
func (m *Middleware) Run(ctx context.Context) error {
	return m.limiter.Run(ctx)
}

func (m *Middleware) retryAfter() time.Duration {
	if m.config.RefillRate <= 0 {
		return time.Minute
	}
	// seconds until one token is back, tolerant of float error
	return time.Duration(math.Ceil(1/m.config.RefillRate-1e-9)) * time.Second
}

// rateLimitExceeded handles rate limit exceeded responses
func (m *Middleware) rateLimitExceeded(w http.ResponseWriter, r *http.Request, ip string) {
	retryAfter := m.retryAfter()
	slog.Warn("Rate limit exceeded",
		"ip", ip,
		"path", r.URL.Path,
		"method", r.Method,
	)

	err := mfaerrors.RateLimitExceeded(retryAfter.String())
	w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())))
	render.Status(r, err.HTTPStatusCode())
	render.JSON(w, r, map[string]interface{}{
		"code":    err.Code,
		"message": "Too many requests. Please try again later.",
		"details": err.Details,
	})
}

func (m *Middleware) clientIP(r *http.Request) string {
	if m.config.TrustProxyHeaders {
		if ip := forwardedIP(r); ip != "" {
			return ip
		}
	}
	return remoteIP(r)
}

// forwardedIP extracts the client IP address set by a proxy
func forwardedIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	return ""
}

// remoteIP strips the port from RemoteAddr
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// GetStats returns statistics about the client limiter
func (m *Middleware) GetStats() Stats {
	return m.limiter.GetStats()
}
