package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DatabaseConfig holds the PostgreSQL connection settings. A full URL wins
// over the discrete fields when both are set.
type DatabaseConfig struct {
	URL      string `envconfig:"URL"`
	Host     string `envconfig:"HOST"`
	Port     string `envconfig:"PORT"`
	Name     string `envconfig:"NAME"`
	User     string `envconfig:"USER"`
	Password string `envconfig:"PASSWORD"`

	SSLMode string `envconfig:"SSL_MODE" default:"prefer" validate:"oneof=disable allow prefer require verify-ca verify-full"`

	// Pool sizing. Membership scans hold a connection for the whole batched
	// read, so MaxConns bounds concurrent cold previews more than it bounds
	// request throughput.
	MaxConns        int           `envconfig:"MAX_CONNS" default:"25" validate:"min=1"`
	MinConns        int           `envconfig:"MIN_CONNS" default:"2" validate:"min=0"`
	MaxConnLifetime time.Duration `envconfig:"MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `envconfig:"MAX_CONN_IDLE_TIME" default:"30m"`
	ConnectTimeout  time.Duration `envconfig:"CONNECT_TIMEOUT" default:"5s"`
}

// ConnectionString returns the DSN handed to pgxpool. With discrete fields
// it assembles a postgres URL so credentials survive URL-escaping.
func (c *DatabaseConfig) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}

	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return dsn.String()
}

// Validate checks whichever connection form is configured and applies the
// production hardening rules.
func (c *DatabaseConfig) Validate(environment string) error {
	if c.URL != "" {
		if err := validatePostgresURL(c.URL); err != nil {
			return fmt.Errorf("invalid database URL: %w", err)
		}
		return c.validatePool()
	}

	if err := validateHost(c.Host, "database"); err != nil {
		return err
	}
	if err := validatePort(c.Port, "database"); err != nil {
		return err
	}
	if err := validateNoWhitespace(c.Name, "database name"); err != nil {
		return err
	}
	// Postgres silently truncates identifiers past 63 bytes.
	if len(c.Name) > 63 {
		return fmt.Errorf("database name cannot exceed 63 characters")
	}
	if err := validateNoWhitespace(c.User, "database user"); err != nil {
		return err
	}

	if environment == EnvironmentProduction {
		if c.Password == "" {
			return fmt.Errorf("database password is required in production environment")
		}
		if err := validatePasswordStrength(c.Password, "database", environment); err != nil {
			return err
		}
		if !isSecureSSLMode(c.SSLMode) {
			return fmt.Errorf("database SSL mode must be 'require', 'verify-ca', or 'verify-full' in production environment")
		}
	}

	return c.validatePool()
}

func (c *DatabaseConfig) validatePool() error {
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("min_conns (%d) cannot be greater than max_conns (%d)", c.MinConns, c.MaxConns)
	}
	return nil
}

// IsConfigured reports whether enough is set to attempt a connection.
// Passwords are checked by Validate, not here, so development setups can
// run against a local trust-auth postgres.
func (c *DatabaseConfig) IsConfigured() bool {
	if c.URL != "" {
		return true
	}
	return c.Host != "" && c.Port != "" && c.Name != "" && c.User != ""
}

// validatePostgresURL checks that a database URL names a user and a
// database, the two parts pgx cannot default.
func validatePostgresURL(dbURL string) error {
	parsed, err := parseAndValidateURL(dbURL, []string{"postgres", "postgresql"})
	if err != nil {
		return err
	}
	if parsed.User == nil || parsed.User.Username() == "" {
		return fmt.Errorf("user is required in URL")
	}
	if strings.TrimPrefix(parsed.Path, "/") == "" {
		return fmt.Errorf("database name is required in URL path")
	}
	return nil
}
