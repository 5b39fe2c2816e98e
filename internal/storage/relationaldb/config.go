package relationaldb

import (
	"fmt"
	"time"
)

// Supported drivers, as registered with database/sql
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains journal database settings
type Config struct {
	Driver string `json:"driver" yaml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn"`

	// Connection pool settings
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`

	// DefaultTimeout bounds connection checks and each journal write
	DefaultTimeout time.Duration `json:"default_timeout" yaml:"default_timeout"`
}

// NewConfig creates a new Config with sensible defaults
func NewConfig() *Config {
	return &Config{
		Driver:          DriverSQLite,
		DSN:             "journal.db",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		DefaultTimeout:  30 * time.Second,
	}
}

// SQLiteConfig creates a SQLite-specific configuration
func SQLiteConfig(path string) *Config {
	config := NewConfig()
	config.DSN = path
	return config
}

// PostgresConfig creates a PostgreSQL-specific configuration
func PostgresConfig(dsn string) *Config {
	config := NewConfig()
	config.Driver = DriverPostgres
	config.DSN = dsn
	config.MaxOpenConns = 10
	config.MaxIdleConns = 5
	return config
}

// Validate checks the configuration and normalizes driver aliases
func (c *Config) Validate() error {
	switch c.Driver {
	case "postgres", "postgresql":
		c.Driver = DriverPostgres
	case "sqlite", "sqlite3":
		c.Driver = DriverSQLite
		// SQLite serializes writers; more connections only contend
		c.MaxOpenConns = 1
		c.MaxIdleConns = 1
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDriver, c.Driver)
	}

	if c.DSN == "" {
		return ErrMissingDSN
	}
	if c.MaxOpenConns < 0 {
		return ErrInvalidMaxOpenConns
	}
	if c.MaxIdleConns < 0 {
		return ErrInvalidMaxIdleConns
	}
	if c.MaxOpenConns > 0 && c.MaxIdleConns > c.MaxOpenConns {
		return ErrMaxIdleExceedsMaxOpen
	}
	if c.DefaultTimeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}
