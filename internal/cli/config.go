package cli

import (
	"encoding/base64"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration for the CLI.
type Config struct {
	// DataDir holds the agents' reference data and append-only logs.
	DataDir string `yaml:"data_dir"`

	Session SessionConfig `yaml:"session"`
}

// SessionConfig selects and configures the snapshot store backend.
type SessionConfig struct {
	// Backend is one of "file", "redis", or "memory". Defaults to "file".
	Backend string `yaml:"backend"`

	// Dir is the snapshot directory for the file backend.
	Dir string `yaml:"dir"`

	Redis RedisConfig `yaml:"redis"`

	// EncryptionKey is a base64-encoded 32-byte key. When set, snapshots
	// are encrypted at rest.
	EncryptionKey string `yaml:"encryption_key"`

	// RedactPatterns are regular expressions matched against snapshot field
	// names; matching values are masked before persistence.
	RedactPatterns []string `yaml:"redact_patterns"`
}

// RedisConfig configures the redis snapshot backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		DataDir: "data",
		Session: SessionConfig{
			Backend: "file",
		},
	}
}

// LoadConfig reads the YAML config at path. A missing path returns defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.Session.Backend == "" {
		cfg.Session.Backend = "file"
	}
	return cfg, nil
}

// DecodeEncryptionKey decodes the configured base64 key, if any.
func (c SessionConfig) DecodeEncryptionKey() ([]byte, error) {
	if c.EncryptionKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}
