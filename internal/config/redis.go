package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// RedisConfig holds the connection settings for the shared preview cache
// tier. A full URL wins over the discrete fields when both are set.
type RedisConfig struct {
	URL      string `envconfig:"URL"`
	Host     string `envconfig:"HOST"`
	Port     string `envconfig:"PORT"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0" validate:"min=0,max=15"`

	TLSEnabled bool `envconfig:"TLS_ENABLED" default:"false"`

	// Pool sizing. Cache traffic is single-key gets and sets, the defaults
	// leave headroom well past preview load.
	PoolSize        int           `envconfig:"POOL_SIZE" default:"50" validate:"min=1"`
	MinIdleConns    int           `envconfig:"MIN_IDLE_CONNS" default:"10" validate:"min=0"`
	DialTimeout     time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
	PoolTimeout     time.Duration `envconfig:"POOL_TIMEOUT" default:"4s"`
	MaxRetries      int           `envconfig:"MAX_RETRIES" default:"3" validate:"min=0"`
	MinRetryBackoff time.Duration `envconfig:"MIN_RETRY_BACKOFF" default:"8ms"`
	MaxRetryBackoff time.Duration `envconfig:"MAX_RETRY_BACKOFF" default:"512ms"`

	// Startup ping retry, see cache.NewRedisClient.
	PingMaxRetries int           `envconfig:"PING_MAX_RETRIES" default:"5" validate:"min=1"`
	PingBackoff    time.Duration `envconfig:"PING_BACKOFF" default:"2s"`
}

// Address returns what the client should dial: the URL verbatim when one is
// configured, host:port otherwise.
func (c *RedisConfig) Address() string {
	if c.URL != "" {
		return c.URL
	}
	return net.JoinHostPort(c.Host, c.Port)
}

// Validate checks whichever connection form is configured and applies the
// production hardening rules.
func (c *RedisConfig) Validate(environment string) error {
	if c.URL != "" {
		if err := validateRedisURL(c.URL); err != nil {
			return fmt.Errorf("invalid redis URL: %w", err)
		}
		return c.validatePool()
	}

	if err := validateHost(c.Host, "redis"); err != nil {
		return err
	}
	if err := validatePort(c.Port, "redis"); err != nil {
		return err
	}

	if environment == EnvironmentProduction {
		if c.Password == "" {
			return fmt.Errorf("redis password is required in production environment")
		}
		if err := validatePasswordStrength(c.Password, "redis", environment); err != nil {
			return err
		}
		if !c.TLSEnabled {
			return fmt.Errorf("redis TLS must be enabled in production environment")
		}
	}

	return c.validatePool()
}

func (c *RedisConfig) validatePool() error {
	if c.MinIdleConns > c.PoolSize {
		return fmt.Errorf("min_idle_conns (%d) cannot be greater than pool_size (%d)", c.MinIdleConns, c.PoolSize)
	}
	return nil
}

// IsConfigured reports whether enough is set to attempt a connection.
func (c *RedisConfig) IsConfigured() bool {
	if c.URL != "" {
		return true
	}
	return c.Host != "" && c.Port != ""
}

// validateRedisURL checks the scheme and the optional database number in
// the URL path.
func validateRedisURL(redisURL string) error {
	parsed, err := parseAndValidateURL(redisURL, []string{"redis", "rediss"})
	if err != nil {
		return err
	}

	if dbStr := strings.TrimPrefix(parsed.Path, "/"); dbStr != "" {
		dbNum, err := strconv.Atoi(dbStr)
		if err != nil {
			return fmt.Errorf("database number must be a valid integer: %s", dbStr)
		}
		if dbNum < 0 || dbNum > 15 {
			return fmt.Errorf("database number must be between 0 and 15, got %d", dbNum)
		}
	}

	return nil
}
