package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 5*time.Second, cfg.Coordinator.LockTimeout)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.HTTP.Port = 0 }},
		{"port too large", func(c *Config) { c.HTTP.Port = 70000 }},
		{"empty host", func(c *Config) { c.HTTP.Host = "" }},
		{"missing http", func(c *Config) { c.HTTP = nil }},
		{"zero ping interval", func(c *Config) { c.WebSocket.PingInterval = 0 }},
		{"missing websocket", func(c *Config) { c.WebSocket = nil }},
		{"zero lock timeout", func(c *Config) { c.Coordinator.LockTimeout = 0 }},
		{"missing coordinator", func(c *Config) { c.Coordinator = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LIVECLASS_HTTP_PORT", "9090")
	t.Setenv("LIVECLASS_HTTP_HOST", "127.0.0.1")
	t.Setenv("LIVECLASS_LOCK_TIMEOUT", "2s")
	t.Setenv("LIVECLASS_WEBSOCKET_PING_INTERVAL", "10s")

	cfg := LoadFromEnv()

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "127.0.0.1", cfg.HTTP.Host)
	assert.Equal(t, 2*time.Second, cfg.Coordinator.LockTimeout)
	assert.Equal(t, 10*time.Second, cfg.WebSocket.PingInterval)
}

func TestLoadFromEnvIgnoresMalformed(t *testing.T) {
	t.Setenv("LIVECLASS_HTTP_PORT", "not-a-number")
	t.Setenv("LIVECLASS_LOCK_TIMEOUT", "soon")

	cfg := LoadFromEnv()

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 5*time.Second, cfg.Coordinator.LockTimeout)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"http": {"port": 9000, "host": "localhost"},
		"websocket": {"ping_interval": "15s"},
		"coordinator": {"lock_timeout": "3s"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.HTTP.Port)
	assert.Equal(t, "localhost", cfg.HTTP.Host)
	assert.Equal(t, 15*time.Second, cfg.WebSocket.PingInterval)
	assert.Equal(t, 3*time.Second, cfg.Coordinator.LockTimeout)
	// Fields the file omits keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.HTTP.ReadTimeout)
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/config.json")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoadConfigWithPrecedence(t *testing.T) {
	t.Setenv("LIVECLASS_HTTP_PORT", "9090")

	// No file: environment wins over defaults.
	cfg := LoadConfigWithPrecedence("")
	assert.Equal(t, 9090, cfg.HTTP.Port)

	// File wins over environment.
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"http": {"port": 9999}}`), 0o644))
	cfg = LoadConfigWithPrecedence(path)
	assert.Equal(t, 9999, cfg.HTTP.Port)

	// Broken file falls back to the environment overlay.
	cfg = LoadConfigWithPrecedence("/nonexistent/config.json")
	assert.Equal(t, 9090, cfg.HTTP.Port)
}
