package hxwire

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// KeyEnv overrides Config.Key when set.
const KeyEnv = "HXWIRE_KEY"

// Config holds engine configuration.
type Config struct {
	// Key signs memo checksums and encrypts sealed state. A "hex:" prefix
	// marks a hex-encoded key; anything else is used as raw bytes.
	Key string `yaml:"key"`

	IDAttr       string `yaml:"id_attr"`
	SnapshotAttr string `yaml:"snapshot_attr"`

	MetricsNamespace string `yaml:"metrics_namespace"`
	TracerName       string `yaml:"tracer_name"`

	// MemoStore is an optional sqlite DSN for lib/memostore.
	MemoStore string `yaml:"memo_store"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.IDAttr == "" {
		c.IDAttr = DefaultIDAttr
	}
	if c.SnapshotAttr == "" {
		c.SnapshotAttr = DefaultSnapshotAttr
	}
	if c.MetricsNamespace == "" {
		c.MetricsNamespace = "hxwire"
	}
	if c.TracerName == "" {
		c.TracerName = "github.com/pthm/hxwire"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// KeyBytes decodes Key.
func (c *Config) KeyBytes() ([]byte, error) {
	if hexKey, ok := strings.CutPrefix(c.Key, "hex:"); ok {
		key, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("hxwire: decode hex key: %w", err)
		}
		return key, nil
	}
	return []byte(c.Key), nil
}

// LoadConfig reads a YAML config file and applies the HXWIRE_KEY override.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if key := os.Getenv(KeyEnv); key != "" {
		cfg.Key = key
	}
	cfg.defaults()
	return cfg, nil
}
