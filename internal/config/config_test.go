package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CONFIG_FILE", "DEBUG", "HOST", "PORT", "PORT_ATTEMPTS", "DOCUMENT_ROOT",
	"READ_TIMEOUT", "WRITE_TIMEOUT", "SHUTDOWN_GRACE_PERIOD", "FORM_LOG_PATH", "LEGACY_ECHO",
}

// clearEnv blanks every variable the package reads; empty counts as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "www", cfg.DocumentRoot)
	assert.Equal(t, "www/contactinfo.txt", cfg.FormLogPath)
	assert.False(t, cfg.LegacyEcho)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEBUG", "true")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9000")
	t.Setenv("PORT_ATTEMPTS", "3")
	t.Setenv("DOCUMENT_ROOT", "/srv/www")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("WRITE_TIMEOUT", "1500ms")
	t.Setenv("SHUTDOWN_GRACE_PERIOD", "0s")
	t.Setenv("FORM_LOG_PATH", "/var/log/contact.txt")
	t.Setenv("LEGACY_ECHO", "1")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, &Config{
		Debug:               true,
		Host:                "127.0.0.1",
		Port:                9000,
		PortAttempts:        3,
		DocumentRoot:        "/srv/www",
		ReadTimeout:         2 * time.Second,
		WriteTimeout:        1500 * time.Millisecond,
		ShutdownGracePeriod: 0,
		FormLogPath:         "/var/log/contact.txt",
		LegacyEcho:          true,
	}, cfg)
}

func TestMalformedEnvKeepsDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "http")
	t.Setenv("DEBUG", "maybe")
	t.Setenv("READ_TIMEOUT", "soon")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "port: 8181\ndocument_root: public\nread_timeout: 5s\nlegacy_echo: true\n")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Port)
	assert.Equal(t, "public", cfg.DocumentRoot)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.True(t, cfg.LegacyEcho)
	assert.Equal(t, 10, cfg.PortAttempts)
	assert.Equal(t, "www/contactinfo.txt", cfg.FormLogPath)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", writeFile(t, "port: 8181\nhost: 0.0.0.0\n"))
	t.Setenv("PORT", "9191")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
}

func TestLoadFileErrors(t *testing.T) {
	clearEnv(t)
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadFile(writeFile(t, "port: [1, 2\n"))
	assert.Error(t, err)

	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = Load()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port too large", func(c *Config) { c.Port = 70000 }},
		{"negative port", func(c *Config) { c.Port = -1 }},
		{"no attempts", func(c *Config) { c.PortAttempts = 0 }},
		{"empty root", func(c *Config) { c.DocumentRoot = "" }},
		{"empty log path", func(c *Config) { c.FormLogPath = "" }},
		{"negative read timeout", func(c *Config) { c.ReadTimeout = -time.Second }},
		{"negative grace", func(c *Config) { c.ShutdownGracePeriod = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestValidationRunsAfterEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "65536")
	_, err := Load()
	assert.ErrorContains(t, err, "PORT out of range")
}

func TestValidateAfterOverride(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Port = 70000
	assert.ErrorContains(t, cfg.Validate(), "PORT out of range")

	cfg.Port = 8080
	cfg.FormLogPath = ""
	assert.ErrorContains(t, cfg.Validate(), "FORM_LOG_PATH")
}
