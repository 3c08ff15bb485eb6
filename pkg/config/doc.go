// Package config holds the environment-driven configuration of simple-mfa.
//
// Each section is a struct with cleanenv tags and is loaded with
// cleanenv.ReadEnv after an optional .env file:
//
//	_ = godotenv.Load()
//
//	var cfg config.PasscodeConfig
//	if err := cleanenv.ReadEnv(&cfg); err != nil {
//		return err
//	}
//	if err := cfg.Validate(); err != nil {
//		return err
//	}
//
// # Sections
//
//   - PasscodeConfig (MFA_*): persistence backend, TTL, sweep interval, delivery policy
//   - RateLimitConfig (MFA_VERIFY_RATE_*): brute force protection for verification
//   - DatabaseConfig (IDM_PG_*): PostgreSQL, used when MFA_PERSISTENCE=postgres
//   - RedisConfig (REDIS_*): Redis, used when MFA_PERSISTENCE=redis
//   - EmailConfig (EMAIL_*): SMTP; email is logged instead of sent until EMAIL_HOST is set
//   - TwilioConfig (TWILIO_*): SMS; logged instead of sent until all three values are set
//   - LogConfig (LOG_FORMAT, LOG_LEVEL): text or json slog output
//
// # Validation
//
// Validate methods collect every problem instead of stopping at the first:
//
//	err := config.Validate(
//		func() config.ValidationErrors {
//			return config.CollectErrors(
//				config.RequireNonEmpty("REDIS_ADDR", addr),
//				config.RequirePositive("MFA_PASSCODE_TTL", ttl),
//			)
//		},
//	)
package config
