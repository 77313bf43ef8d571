package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Core
	Debug bool `yaml:"debug"`

	// Server
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	PortAttempts int    `yaml:"port_attempts"`
	DocumentRoot string `yaml:"document_root"`

	// Timeouts
	ReadTimeout         time.Duration `yaml:"read_timeout"`
	WriteTimeout        time.Duration `yaml:"write_timeout"`
	ShutdownGracePeriod time.Duration `yaml:"shutdown_grace_period"`

	// Contact form
	FormLogPath string `yaml:"form_log_path"`
	LegacyEcho  bool   `yaml:"legacy_echo"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:                8080,
		PortAttempts:        10,
		DocumentRoot:        "www",
		ReadTimeout:         10 * time.Second,
		WriteTimeout:        10 * time.Second,
		ShutdownGracePeriod: 3 * time.Second,
		FormLogPath:         "www/contactinfo.txt",
	}
}

// Load reads the YAML file named by CONFIG_FILE, if any, and then applies
// environment overrides.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := Default()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads configuration from a YAML file. Keys missing from the file
// keep their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.decodeFile(path); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides every field whose variable is set.
func (c *Config) applyEnv() {
	c.Debug = getEnvBool("DEBUG", c.Debug)

	c.Host = getEnv("HOST", c.Host)
	c.Port = getEnvInt("PORT", c.Port)
	c.PortAttempts = getEnvInt("PORT_ATTEMPTS", c.PortAttempts)
	c.DocumentRoot = getEnv("DOCUMENT_ROOT", c.DocumentRoot)

	c.ReadTimeout = getEnvDuration("READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = getEnvDuration("WRITE_TIMEOUT", c.WriteTimeout)
	c.ShutdownGracePeriod = getEnvDuration("SHUTDOWN_GRACE_PERIOD", c.ShutdownGracePeriod)

	c.FormLogPath = getEnv("FORM_LOG_PATH", c.FormLogPath)
	c.LegacyEcho = getEnvBool("LEGACY_ECHO", c.LegacyEcho)
}

// Validate ensures configuration is coherent. Callers that change fields
// after loading run it again.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.PortAttempts < 1 {
		return fmt.Errorf("PORT_ATTEMPTS must be at least 1, got %d", c.PortAttempts)
	}
	if c.DocumentRoot == "" {
		return fmt.Errorf("DOCUMENT_ROOT must not be empty")
	}
	if c.FormLogPath == "" {
		return fmt.Errorf("FORM_LOG_PATH must not be empty")
	}
	for name, d := range map[string]time.Duration{
		"READ_TIMEOUT":          c.ReadTimeout,
		"WRITE_TIMEOUT":         c.WriteTimeout,
		"SHUTDOWN_GRACE_PERIOD": c.ShutdownGracePeriod,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative: %s", name, d)
		}
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
