// Package config loads escrowd settings from defaults, a TOML file and
// ESCROWD_ environment variables.
package config

import (
	"time"

	"github.com/LeJamon/goEscrow/internal/core/tx"
	"github.com/LeJamon/goEscrow/internal/storage/relationaldb"
)

// Config represents the complete escrowd configuration
type Config struct {
	Ledger  LedgerConfig  `toml:"ledger" mapstructure:"ledger"`
	Rent    RentConfig    `toml:"rent" mapstructure:"rent"`
	Engine  EngineConfig  `toml:"engine" mapstructure:"engine"`
	Journal JournalConfig `toml:"journal" mapstructure:"journal"`
	Server  ServerConfig  `toml:"server" mapstructure:"server"`
	Log     LogConfig     `toml:"log" mapstructure:"log"`

	configPath string
}

// LedgerConfig selects the account store
type LedgerConfig struct {
	// Backend is one of memory, pebble, bbolt
	Backend   string `toml:"backend" mapstructure:"backend"`
	Path      string `toml:"path" mapstructure:"path"`
	CacheSize int    `toml:"cache_size" mapstructure:"cache_size"`
}

// RentConfig is published in the rent sysvar of a new ledger
type RentConfig struct {
	LamportsPerByteYear uint64 `toml:"lamports_per_byte_year" mapstructure:"lamports_per_byte_year"`
	ExemptionThreshold  uint64 `toml:"exemption_threshold" mapstructure:"exemption_threshold"`
}

// EngineConfig tunes transaction processing
type EngineConfig struct {
	SkipSignatureVerification bool `toml:"skip_signature_verification" mapstructure:"skip_signature_verification"`
	MaxCallDepth              int  `toml:"max_call_depth" mapstructure:"max_call_depth"`
}

// JournalConfig configures the SQL transaction journal
type JournalConfig struct {
	Enabled      bool          `toml:"enabled" mapstructure:"enabled"`
	Driver       string        `toml:"driver" mapstructure:"driver"`
	DSN          string        `toml:"dsn" mapstructure:"dsn"`
	MaxOpenConns int           `toml:"max_open_conns" mapstructure:"max_open_conns"`
	Timeout      time.Duration `toml:"timeout" mapstructure:"timeout"`
}

// ServerConfig configures the node HTTP API
type ServerConfig struct {
	Address         string        `toml:"address" mapstructure:"address"`
	ReadTimeout     time.Duration `toml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// Faucet enables POST /v1/airdrop, capped at FaucetMaxLamports per call
	Faucet            bool   `toml:"faucet" mapstructure:"faucet"`
	FaucetMaxLamports uint64 `toml:"faucet_max_lamports" mapstructure:"faucet_max_lamports"`

	// Stream enables the websocket transaction feed at /v1/stream
	Stream bool `toml:"stream" mapstructure:"stream"`
}

// LogConfig configures logrus
type LogConfig struct {
	Level  string `toml:"level" mapstructure:"level"`
	Format string `toml:"format" mapstructure:"format"`
}

// Rent returns the configured rent parameters.
func (r RentConfig) Rent() tx.Rent {
	return tx.Rent{
		LamportsPerByteYear: r.LamportsPerByteYear,
		ExemptionThreshold:  r.ExemptionThreshold,
	}
}

// EngineConfig converts to the engine's configuration.
func (e EngineConfig) EngineConfig() tx.EngineConfig {
	return tx.EngineConfig{
		SkipSignatureVerification: e.SkipSignatureVerification,
		MaxCallDepth:              e.MaxCallDepth,
	}
}

// Relational converts to the journal's database configuration.
func (j JournalConfig) Relational() *relationaldb.Config {
	c := relationaldb.NewConfig()
	c.Driver = j.Driver
	c.DSN = j.DSN
	if j.MaxOpenConns > 0 {
		c.MaxOpenConns = j.MaxOpenConns
		c.MaxIdleConns = j.MaxOpenConns
	}
	if j.Timeout > 0 {
		c.DefaultTimeout = j.Timeout
	}
	return c
}

// ConfigPath returns the file the configuration was read from, if any.
func (c *Config) ConfigPath() string {
	return c.configPath
}
