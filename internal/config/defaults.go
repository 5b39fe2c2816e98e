package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/LeJamon/goEscrow/internal/core/tx"
)

// setDefaults sets every default value
func setDefaults(v *viper.Viper) {
	// Ledger
	v.SetDefault("ledger.backend", "pebble")
	v.SetDefault("ledger.path", "data")
	v.SetDefault("ledger.cache_size", 4096)

	// Rent
	v.SetDefault("rent.lamports_per_byte_year", tx.DefaultLamportsPerByteYear)
	v.SetDefault("rent.exemption_threshold", tx.DefaultExemptionThreshold)

	// Engine
	v.SetDefault("engine.skip_signature_verification", false)
	v.SetDefault("engine.max_call_depth", tx.DefaultMaxCallDepth)

	// Journal
	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.driver", "sqlite")
	v.SetDefault("journal.dsn", "data/journal.db")
	v.SetDefault("journal.max_open_conns", 0)
	v.SetDefault("journal.timeout", 30*time.Second)

	// Server
	v.SetDefault("server.address", "127.0.0.1:8899")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.faucet", false)
	v.SetDefault("server.faucet_max_lamports", uint64(10_000_000_000))
	v.SetDefault("server.stream", true)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
