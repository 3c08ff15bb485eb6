package config

import (
	"os"
	"strings"
)

// Environment is the deployment environment read from APP_ENV
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
	Test        Environment = "test"
)

// GetEnvironment returns the environment from APP_ENV, defaulting to development
func GetEnvironment() Environment {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV"))) {
	case "production", "prod":
		return Production
	case "staging", "stage":
		return Staging
	case "test", "testing":
		return Test
	default:
		return Development
	}
}

// IsProduction returns true if running in production environment
func IsProduction() bool {
	return GetEnvironment() == Production
}

// ValidateTransports rejects a production deployment without SMTP. Without it
// email passcodes would only be written to the log.
func ValidateTransports(env Environment, email EmailConfig) error {
	if env != Production || email.IsConfigured() {
		return nil
	}
	return ValidationErrors{{Field: "EMAIL_HOST", Message: "is required when APP_ENV is production"}}
}
