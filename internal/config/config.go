package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Dataset sources.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// Config holds the service settings, read from the environment.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:"127.0.0.1:5000"`
	ArtifactDir     string        `env:"ARTIFACT_DIR" envDefault:"saved_models"`
	DataFile        string        `env:"DATA_FILE" envDefault:"Data.csv"`
	DatasetSource   string        `env:"DATASET_SOURCE" envDefault:"csv"`
	PostgresURL     string        `env:"POSTGRES_URL"`
	FrontendDir     string        `env:"FRONTEND_BUILD_DIR" envDefault:"waste-predictor/build"`
	MLServiceURL    string        `env:"ML_SERVICE_URL"`
	MLTimeout       time.Duration `env:"ML_SERVICE_TIMEOUT" envDefault:"5s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that depend on each other.
func (c Config) Validate() error {
	switch c.DatasetSource {
	case SourceCSV:
	case SourcePostgres:
		if c.PostgresURL == "" {
			return errors.New("POSTGRES_URL is required when DATASET_SOURCE=postgres")
		}
	default:
		return fmt.Errorf("unknown DATASET_SOURCE %q", c.DatasetSource)
	}
	if c.MLTimeout <= 0 {
		return errors.New("ML_SERVICE_TIMEOUT must be positive")
	}
	return nil
}
