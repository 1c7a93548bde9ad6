package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/takjakim/method-studio/internal/errors"
)

// Config represents the complete engine configuration
type Config struct {
	Database   DatabaseConfig
	Resampling ResamplingConfig
}

// DatabaseConfig holds result-store connection settings. The store is
// optional; an empty URL disables persistence.
type DatabaseConfig struct {
	URL     string
	Enabled bool
}

// ResamplingConfig holds bootstrap defaults, overridable per analysis
type ResamplingConfig struct {
	NBoot   int
	CILevel float64
	Seed    int64
	Workers int
}

// Load reads configuration from the environment, honoring a local .env file
// when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{}

	config.Database = DatabaseConfig{
		URL: os.Getenv("DATABASE_URL"),
	}
	config.Database.Enabled = config.Database.URL != ""

	resampling, err := loadResamplingConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load resampling configuration")
	}
	config.Resampling = *resampling

	return config, nil
}

func loadResamplingConfig() (*ResamplingConfig, error) {
	cfg := &ResamplingConfig{
		NBoot:   5000,
		CILevel: 0.95,
		Seed:    20240101,
		Workers: 4,
	}

	if v := os.Getenv("BOOT_SAMPLES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 100 {
			return nil, errors.New(errors.CodeInvalidDesign, "BOOT_SAMPLES must be an integer >= 100")
		}
		cfg.NBoot = n
	}
	if v := os.Getenv("BOOT_CI_LEVEL"); v != "" {
		level, err := strconv.ParseFloat(v, 64)
		if err != nil || level <= 0 || level >= 1 {
			return nil, errors.New(errors.CodeInvalidDesign, "BOOT_CI_LEVEL must be in (0, 1)")
		}
		cfg.CILevel = level
	}
	if v := os.Getenv("BOOT_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.New(errors.CodeInvalidDesign, "BOOT_SEED must be an integer")
		}
		cfg.Seed = seed
	}
	if v := os.Getenv("BOOT_WORKERS"); v != "" {
		workers, err := strconv.Atoi(v)
		if err != nil || workers < 1 {
			return nil, errors.New(errors.CodeInvalidDesign, "BOOT_WORKERS must be a positive integer")
		}
		cfg.Workers = workers
	}

	return cfg, nil
}
