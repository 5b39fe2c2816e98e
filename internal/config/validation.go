package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownBackend = errors.New("unknown ledger backend")
	ErrMissingPath    = errors.New("ledger path is required")
	ErrInvalidRent    = errors.New("invalid rent parameters")
	ErrInvalidServer  = errors.New("invalid server configuration")
	ErrInvalidLog     = errors.New("invalid log configuration")
)

// ValidateConfig performs validation on the complete configuration
func ValidateConfig(config *Config) error {
	if err := validateLedger(&config.Ledger); err != nil {
		return fmt.Errorf("ledger config validation failed: %w", err)
	}
	if err := validateRent(&config.Rent); err != nil {
		return fmt.Errorf("rent config validation failed: %w", err)
	}
	if config.Engine.MaxCallDepth < 0 {
		return fmt.Errorf("engine config validation failed: max_call_depth must be >= 0")
	}
	if config.Journal.Enabled {
		if err := config.Journal.Relational().Validate(); err != nil {
			return fmt.Errorf("journal config validation failed: %w", err)
		}
	}
	if err := validateServer(&config.Server); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}
	if err := validateLog(&config.Log); err != nil {
		return fmt.Errorf("log config validation failed: %w", err)
	}
	return nil
}

func validateLedger(c *LedgerConfig) error {
	c.Backend = strings.ToLower(c.Backend)
	switch c.Backend {
	case "memory":
	case "pebble", "bbolt":
		if c.Path == "" {
			return ErrMissingPath
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must be >= 0, got %d", c.CacheSize)
	}
	return nil
}

func validateRent(c *RentConfig) error {
	if c.LamportsPerByteYear == 0 {
		return fmt.Errorf("%w: lamports_per_byte_year must be positive", ErrInvalidRent)
	}
	if c.ExemptionThreshold == 0 {
		return fmt.Errorf("%w: exemption_threshold must be positive", ErrInvalidRent)
	}
	// The deposit for the largest account must fit in a u64
	const maxBytes = 10*1024*1024 + 128
	if c.LamportsPerByteYear > ^uint64(0)/maxBytes/c.ExemptionThreshold {
		return fmt.Errorf("%w: deposit overflows", ErrInvalidRent)
	}
	return nil
}

func validateServer(c *ServerConfig) error {
	if c.Address == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidServer)
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidServer)
	}
	if c.Faucet && c.FaucetMaxLamports == 0 {
		return fmt.Errorf("%w: faucet_max_lamports must be positive when the faucet is enabled", ErrInvalidServer)
	}
	return nil
}

func validateLog(c *LogConfig) error {
	if _, err := logrus.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLog, err)
	}
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: format must be text or json, got %q", ErrInvalidLog, c.Format)
	}
	return nil
}
