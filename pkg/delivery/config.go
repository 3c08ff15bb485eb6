package delivery

import (
	"log/slog"
	"time"

	"github.com/tendant/simple-mfa/pkg/passcode"
)

const (
	DefaultTimeout = 10 * time.Second
	DefaultAppName = "simple-mfa"
)

// Config controls how a Dispatcher delivers passcodes.
type Config struct {
	// FailureLevel is the log level for failed sends. Nil means slog.LevelError.
	FailureLevel slog.Leveler
	// Timeout bounds each send. Zero means DefaultTimeout.
	Timeout time.Duration
	// AppName is shown in message templates.
	AppName string
	// TTL is the passcode lifetime shown to the user. Zero means passcode.DefaultTTL.
	TTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.FailureLevel == nil {
		c.FailureLevel = slog.LevelError
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.AppName == "" {
		c.AppName = DefaultAppName
	}
	if c.TTL <= 0 {
		c.TTL = passcode.DefaultTTL
	}
	return c
}

// ParseLevel parses a level name such as "warn" or "error".
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}
