package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("BOOT_SAMPLES", "")
	t.Setenv("BOOT_CI_LEVEL", "")
	t.Setenv("BOOT_SEED", "")
	t.Setenv("BOOT_WORKERS", "")

	cfg, err := Load()
	assert.NoError(t, err)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, 5000, cfg.Resampling.NBoot)
	assert.Equal(t, 0.95, cfg.Resampling.CILevel)
	assert.Equal(t, int64(20240101), cfg.Resampling.Seed)
	assert.Equal(t, 4, cfg.Resampling.Workers)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/results")
	t.Setenv("BOOT_SAMPLES", "2000")
	t.Setenv("BOOT_CI_LEVEL", "0.99")
	t.Setenv("BOOT_SEED", "42")
	t.Setenv("BOOT_WORKERS", "8")

	cfg, err := Load()
	assert.NoError(t, err)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, 2000, cfg.Resampling.NBoot)
	assert.Equal(t, 0.99, cfg.Resampling.CILevel)
	assert.Equal(t, int64(42), cfg.Resampling.Seed)
	assert.Equal(t, 8, cfg.Resampling.Workers)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"BOOT_SAMPLES":  "50",
		"BOOT_CI_LEVEL": "1.5",
		"BOOT_WORKERS":  "0",
		"BOOT_SEED":     "not-a-number",
	}
	for key, bad := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, bad)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
