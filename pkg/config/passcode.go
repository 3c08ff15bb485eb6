package config

import (
	"time"

	"github.com/tendant/simple-mfa/pkg/delivery"
)

// PasscodeConfig holds passcode storage and delivery settings
type PasscodeConfig struct {
	Persistence   string        `env:"MFA_PERSISTENCE" env-default:"memory"`
	DataDir       string        `env:"MFA_DATA_DIR" env-default:"./data"`
	TTL           time.Duration `env:"MFA_PASSCODE_TTL" env-default:"10m"`
	SweepInterval time.Duration `env:"MFA_SWEEP_INTERVAL" env-default:"1m"`

	DeliveryFailureLevel string        `env:"MFA_DELIVERY_FAILURE_LEVEL" env-default:"error"`
	DeliveryTimeout      time.Duration `env:"MFA_DELIVERY_TIMEOUT" env-default:"10s"`
	AppName              string        `env:"MFA_APP_NAME" env-default:"simple-mfa"`

	// UsersFile is a JSON user directory; empty means an empty directory
	UsersFile string `env:"MFA_USERS_FILE"`
}

var persistenceTypes = []string{"postgres", "postgresql", "redis", "file", "memory", "inmem"}

// Validate checks passcode settings
func (p PasscodeConfig) Validate() error {
	return Validate(
		func() ValidationErrors {
			return CollectErrors(
				RequireOneOf("MFA_PERSISTENCE", p.Persistence, persistenceTypes),
				RequirePositive("MFA_PASSCODE_TTL", p.TTL),
				RequirePositive("MFA_SWEEP_INTERVAL", p.SweepInterval),
				RequirePositive("MFA_DELIVERY_TIMEOUT", p.DeliveryTimeout),
			)
		},
		func() ValidationErrors {
			if _, err := delivery.ParseLevel(p.DeliveryFailureLevel); err != nil {
				return ValidationErrors{{Field: "MFA_DELIVERY_FAILURE_LEVEL", Message: err.Error()}}
			}
			return nil
		},
		func() ValidationErrors {
			if p.Persistence != "file" {
				return nil
			}
			return CollectErrors(RequireNonEmpty("MFA_DATA_DIR", p.DataDir))
		},
	)
}

// DeliveryConfig converts the delivery settings to a delivery.Config
func (p PasscodeConfig) DeliveryConfig() (delivery.Config, error) {
	level, err := delivery.ParseLevel(p.DeliveryFailureLevel)
	if err != nil {
		return delivery.Config{}, err
	}
	return delivery.Config{
		FailureLevel: level,
		Timeout:      p.DeliveryTimeout,
		AppName:      p.AppName,
		TTL:          p.TTL,
	}, nil
}
