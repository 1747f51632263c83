package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	EnvSnapshot   = "STOCKTAGS_SNAPSHOT"
	EnvListenAddr = "STOCKTAGS_LISTEN_ADDR"
	EnvLogLevel   = "STOCKTAGS_LOG_LEVEL"
)

// Config is the in-memory representation of ~/.stocktags/stocktags.yaml.
type Config struct {
	SnapshotPath   string `yaml:"snapshot_path" json:"snapshot_path"`
	ListenAddr     string `yaml:"listen_addr" json:"listen_addr"`
	TagsPerPage    int    `yaml:"tags_per_page" json:"tags_per_page"`
	StocksPerPage  int    `yaml:"stocks_per_page" json:"stocks_per_page"`
	LogLevel       string `yaml:"log_level" json:"log_level"`
	PersistUpdates bool   `yaml:"persist_updates" json:"persist_updates"`
}

// Dir returns the absolute path to ~/.stocktags/.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".stocktags"), nil
}

// ConfigPath returns the absolute path to ~/.stocktags/stocktags.yaml.
func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "stocktags.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand ~: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}

// DefaultConfig returns the configuration used when no file exists and the
// one written by `stocktags config init`.
func DefaultConfig() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return &Config{
		SnapshotPath:   filepath.Join(dir, "stocks.json"),
		ListenAddr:     "127.0.0.1:7420",
		TagsPerPage:    20,
		StocksPerPage:  20,
		LogLevel:       "info",
		PersistUpdates: true,
	}, nil
}

// Load reads ~/.stocktags/stocktags.yaml, falling back to defaults when the
// file does not exist, and applies STOCKTAGS_* overrides from the
// environment or ~/.stocktags/.env.
func Load() (*Config, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return nil, err
	}
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
	}

	if err := cfg.applyOverrides(); err != nil {
		return nil, err
	}
	cfg.SnapshotPath, err = ExpandPath(cfg.SnapshotPath)
	if err != nil {
		return nil, err
	}
	if cfg.TagsPerPage < 1 {
		cfg.TagsPerPage = 20
	}
	if cfg.StocksPerPage < 1 {
		cfg.StocksPerPage = 20
	}
	return cfg, nil
}

func (c *Config) applyOverrides() error {
	for key, dst := range map[string]*string{
		EnvSnapshot:   &c.SnapshotPath,
		EnvListenAddr: &c.ListenAddr,
		EnvLogLevel:   &c.LogLevel,
	} {
		v, err := GetConfigValue(key)
		if err != nil {
			return err
		}
		if v != "" {
			*dst = v
		}
	}
	return nil
}

// Save marshals cfg and writes it to ~/.stocktags/stocktags.yaml.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return nil
}
