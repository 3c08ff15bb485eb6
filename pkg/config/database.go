package config

import (
	"fmt"
	"net/url"
)

// DatabaseConfig holds PostgreSQL database configuration
type DatabaseConfig struct {
	Host     string `env:"IDM_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"IDM_PG_PORT" env-default:"5432"`
	Database string `env:"IDM_PG_DATABASE" env-default:"mfa_db"`
	User     string `env:"IDM_PG_USER" env-default:"mfa"`
	Password string `env:"IDM_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"IDM_PG_SCHEMA" env-default:"public"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Database,
		RawQuery: fmt.Sprintf("sslmode=disable&search_path=%s,public", url.QueryEscape(d.Schema)),
	}
	return u.String()
}

// Validate checks the connection settings
func (d DatabaseConfig) Validate() error {
	return Validate(func() ValidationErrors {
		return CollectErrors(
			RequireNonEmpty("IDM_PG_HOST", d.Host),
			RequireValidPort("IDM_PG_PORT", d.Port),
			RequireNonEmpty("IDM_PG_DATABASE", d.Database),
			RequireNonEmpty("IDM_PG_USER", d.User),
		)
	})
}
