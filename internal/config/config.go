package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/PrabinKa/ShipMate/pkg/config"
)

// Config holds all configuration for the agent.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Local HTTP facade
	HTTPPort int `env:"SHIPMATE_HTTP_PORT" envDefault:"8085"`

	// Shipment backend
	BackendBaseURL string        `env:"SHIPMATE_BACKEND_URL" envDefault:"https://api.shipmate.example.com"`
	RequestTimeout time.Duration `env:"SHIPMATE_REQUEST_TIMEOUT" envDefault:"30s"`
	MaxRetries     int           `env:"SHIPMATE_MAX_RETRIES" envDefault:"2"`

	// Session
	LoginExpiresMins int `env:"SHIPMATE_LOGIN_EXPIRES_MINS" envDefault:"30"`

	// Offline storage
	StoragePath       string `env:"SHIPMATE_STORAGE_PATH" envDefault:"shipmate.db"`
	StoragePassphrase string `env:"SHIPMATE_STORAGE_PASSPHRASE" envDefault:"change-this-development-passphrase"`

	// Connectivity probe
	ProbeURL      string        `env:"SHIPMATE_PROBE_URL" envDefault:""`
	ProbeInterval time.Duration `env:"SHIPMATE_PROBE_INTERVAL" envDefault:"15s"`

	// Delivery simulation
	SimulationEnabled bool `env:"SHIPMATE_SIMULATION_ENABLED" envDefault:"false"`

	// Tracing
	OTELEnabled  bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampling float64 `env:"OTEL_SAMPLING_RATIO" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load agent config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if cfg.BackendBaseURL == "" {
		return nil, fmt.Errorf("SHIPMATE_BACKEND_URL must not be empty")
	}

	// Outside development the encryption passphrase must be explicit and
	// strong enough to derive a key from.
	if cfg.Environment != "development" {
		if cfg.StoragePassphrase == "change-this-development-passphrase" {
			return nil, fmt.Errorf("SHIPMATE_STORAGE_PASSPHRASE must be explicitly set in %q mode", cfg.Environment)
		}
		if len(cfg.StoragePassphrase) < 16 {
			return nil, fmt.Errorf("SHIPMATE_STORAGE_PASSPHRASE must be at least 16 characters long, got %d", len(cfg.StoragePassphrase))
		}
	}

	return cfg, nil
}

// ProbeTarget returns the URL probed for reachability, defaulting to the
// backend itself.
func (c *Config) ProbeTarget() string {
	if c.ProbeURL != "" {
		return c.ProbeURL
	}
	return c.BackendBaseURL
}
