// Package config holds the server configuration resolved from CLI flags and
// matching HQ_-prefixed environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"hq/internal/store"
	"hq/internal/sweeper"
)

// Config is the resolved configuration of the hq server.
type Config struct {
	// Port is the TCP port the HTTP API binds to.
	Port int

	// RequestTimeout bounds each HTTP request; zero means no timeout.
	RequestTimeout time.Duration

	// Database is the SQLite file path, or ":memory:" for an in-memory
	// database that vanishes on shutdown.
	Database string

	// SweepTick is the cadence of the lease sweeper.
	SweepTick time.Duration

	// ObservabilityConfig optionally points at a YAML file overriding the
	// logging/metrics/tracing defaults.
	ObservabilityConfig string
}

// Keys used by flags and, with the HQ_ prefix, environment variables.
const (
	KeyPort                = "port"
	KeyRequestTimeout      = "request-timeout"
	KeyDatabase            = "database"
	KeySweepTick           = "sweep-tick"
	KeyObservabilityConfig = "observability-config"
)

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, 9999)
	v.SetDefault(KeyRequestTimeout, 0)
	v.SetDefault(KeySweepTick, sweeper.DefaultTick)
}

// Load resolves and validates the configuration from v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:                v.GetInt(KeyPort),
		RequestTimeout:      time.Duration(v.GetInt(KeyRequestTimeout)) * time.Second,
		Database:            v.GetString(KeyDatabase),
		SweepTick:           v.GetDuration(KeySweepTick),
		ObservabilityConfig: v.GetString(KeyObservabilityConfig),
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.Database == "" {
		return cfg, fmt.Errorf("database path is required (pass %q for an in-memory database)", store.MemoryPath)
	}
	if cfg.RequestTimeout < 0 {
		return cfg, fmt.Errorf("request timeout must not be negative")
	}
	if cfg.SweepTick <= 0 {
		cfg.SweepTick = sweeper.DefaultTick
	}

	return cfg, nil
}
