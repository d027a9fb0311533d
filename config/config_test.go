package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
version = "1.2.0"

[server]
name = "forecastd"
environment = "test"

[server.http]
port = 9090

[simulation]
paths = 2000
pilot_paths = 500
recenter = "local"
recenter_window = 5

[simulation.views]
turbulent = 0.30
`

func resetViper(t *testing.T) {
	t.Helper()
	vInstance = viper.New()
	t.Cleanup(func() { vInstance = viper.New() })
}

func TestLoadMergesFileWithDefaults(t *testing.T) {
	resetViper(t)
	path := filepath.Join(t.TempDir(), "forecastd.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "1.2.0", conf.Version)
	assert.Equal(t, 9090, conf.Server.HTTP.Port)
	assert.Equal(t, 2000, conf.Simulation.Paths)
	assert.Equal(t, 500, conf.Simulation.PilotPaths)
	assert.Equal(t, "local", conf.Simulation.Recenter)
	assert.Equal(t, 0.30, conf.Simulation.Views.Turbulent)
	assert.Equal(t, 0.18, conf.Simulation.Views.Normal)
	assert.True(t, conf.Simulation.ControlVariate)
	assert.Equal(t, 2*time.Minute, conf.Simulation.Timeout)
	assert.Equal(t, int64(42), conf.Simulation.Seed)
}

func TestLoadWithoutFileUsesDefaultsAndEnv(t *testing.T) {
	resetViper(t)
	t.Setenv("APP_SIMULATION_PATHS", "777")

	conf, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 777, conf.Simulation.Paths)
	assert.Equal(t, 8080, conf.Server.HTTP.Port)
	assert.Equal(t, "info", conf.Log.Level)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	resetViper(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[simulation]\nrecenter = \"global\"\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestMaskHidesSecrets(t *testing.T) {
	m := map[string]any{
		"tracing": map[string]any{"auth_token": "abc", "enabled": true},
		"api_key": "xyz",
	}
	mask(m)
	assert.Equal(t, "******", m["api_key"])
	assert.Equal(t, "******", m["tracing"].(map[string]any)["auth_token"])
	assert.Equal(t, true, m["tracing"].(map[string]any)["enabled"])
}
