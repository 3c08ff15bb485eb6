package config

import (
	"time"

	"github.com/tendant/simple-mfa/pkg/ratelimit"
)

// RateLimitConfig holds per-client limits for the verify endpoint
type RateLimitConfig struct {
	Enabled           bool    `env:"MFA_VERIFY_RATE_ENABLED" env-default:"true"`
	Capacity          int     `env:"MFA_VERIFY_RATE_CAPACITY" env-default:"5"`
	PerMinute         float64 `env:"MFA_VERIFY_RATE_PER_MINUTE" env-default:"5"`
	TrustProxyHeaders bool    `env:"MFA_TRUST_PROXY_HEADERS" env-default:"false"`
	IncludeHeaders    bool    `env:"RATELIMIT_INCLUDE_HEADERS" env-default:"true"`
}

// Validate checks the limits when rate limiting is enabled
func (r RateLimitConfig) Validate() error {
	if !r.Enabled {
		return nil
	}
	return Validate(func() ValidationErrors {
		return CollectErrors(
			RequirePositive("MFA_VERIFY_RATE_CAPACITY", r.Capacity),
			RequirePositive("MFA_VERIFY_RATE_PER_MINUTE", r.PerMinute),
		)
	})
}

// ToMiddlewareConfig converts the config to a ratelimit.Config
func (r RateLimitConfig) ToMiddlewareConfig() *ratelimit.Config {
	return &ratelimit.Config{
		Capacity:          r.Capacity,
		RefillRate:        r.PerMinute / 60.0,
		BucketTTL:         1 * time.Hour,
		TrustProxyHeaders: r.TrustProxyHeaders,
		IncludeHeaders:    r.IncludeHeaders,
	}
}
