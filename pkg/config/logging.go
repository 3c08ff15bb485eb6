package config

import (
	"io"
	"log/slog"
	"strings"
)

// LogConfig selects the slog handler for the binary. An empty format means
// json in production and text elsewhere.
type LogConfig struct {
	Format string `env:"LOG_FORMAT"`
	Level  string `env:"LOG_LEVEL" env-default:"info"`
}

func (l LogConfig) json(env Environment) bool {
	if l.Format == "" {
		return env == Production
	}
	return strings.EqualFold(l.Format, "json")
}

// NewLogger builds a logger writing to w. Unknown levels fall back to info.
func (l LogConfig) NewLogger(w io.Writer, env Environment) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{AddSource: true, Level: level}

	if l.json(env) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
