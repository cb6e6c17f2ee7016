package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnvs is a helper that sets multiple env vars for one test.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnvs(t, map[string]string{"ENVIRONMENT": "development"})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8085, cfg.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 15*time.Second, cfg.ProbeInterval)
	assert.False(t, cfg.SimulationEnabled)
}

func TestLoad_Development_AcceptsDefaultPassphrase(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT": "development",
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "change-this-development-passphrase", cfg.StoragePassphrase)
}

func TestLoad_Production_RejectsDefaultPassphrase(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT": "production",
	})

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "SHIPMATE_STORAGE_PASSPHRASE must be explicitly set")
}

func TestLoad_Production_RejectsShortPassphrase(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT":                 "production",
		"SHIPMATE_STORAGE_PASSPHRASE": "too-short",
	})

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "at least 16 characters")
}

func TestLoad_RejectsInvalidPort(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT":        "development",
		"SHIPMATE_HTTP_PORT": "70000",
	})

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestProbeTargetFallsBackToBackend(t *testing.T) {
	cfg := &Config{BackendBaseURL: "https://backend.example.com"}
	assert.Equal(t, "https://backend.example.com", cfg.ProbeTarget())

	cfg.ProbeURL = "https://probe.example.com/generate_204"
	assert.Equal(t, "https://probe.example.com/generate_204", cfg.ProbeTarget())
}
