package catalogue

import (
	"fmt"
	"time"
)

// PostgresConfig holds the connection parameters for the Postgres-backed
// catalogue adapter.
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Database string `yaml:"database" mapstructure:"database"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	SSLMode  string `yaml:"ssl_mode" mapstructure:"ssl_mode"`

	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`

	MaxConnLifetime   time.Duration `yaml:"max_conn_lifetime" mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `yaml:"max_conn_idle_time" mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `yaml:"health_check_period" mapstructure:"health_check_period"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`
}

// DefaultPostgresConfig returns sane defaults for local development.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:              "localhost",
		Port:              5432,
		Database:          "streamrouter",
		User:              "streamrouter",
		SSLMode:           "disable",
		MaxConns:          20,
		MinConns:          2,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   5 * time.Minute,
		HealthCheckPeriod: 30 * time.Second,
		ConnectTimeout:    10 * time.Second,
	}
}

// Validate checks that the config describes a connectable pool.
func (c PostgresConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("catalogue: postgres host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("catalogue: postgres port must be between 1 and 65535")
	}
	if c.Database == "" {
		return fmt.Errorf("catalogue: postgres database name is required")
	}
	if c.User == "" {
		return fmt.Errorf("catalogue: postgres user is required")
	}
	if c.MaxConns <= 0 {
		return fmt.Errorf("catalogue: max_conns must be greater than 0")
	}
	if c.MinConns < 0 || c.MinConns > c.MaxConns {
		return fmt.Errorf("catalogue: min_conns must be between 0 and max_conns")
	}

	validSSLModes := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSLModes[c.SSLMode] {
		return fmt.Errorf("catalogue: invalid ssl_mode %q", c.SSLMode)
	}
	return nil
}

// DSN renders the pgx connection string for this config.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}
