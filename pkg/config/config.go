package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/user/nsenso/pkg/engine"
)

// Config holds optional scanner settings. Every field has a usable zero
// value; a missing file yields Default().
type Config struct {
	ProbeTimeout   Duration `yaml:"probe_timeout,omitempty"`
	Parallelism    int      `yaml:"parallelism,omitempty"`
	DisabledProbes []string `yaml:"disabled_probes,omitempty"`
	RemediationDir string   `yaml:"remediation_dir,omitempty"`
	ChecksDir      string   `yaml:"checks_dir,omitempty"`
	NoColor        bool     `yaml:"no_color,omitempty"`
}

// Duration is a time.Duration written as a Go duration string in YAML.
type Duration time.Duration

// MarshalYAML writes d as a duration string such as "2m0s".
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML parses a duration string such as "30s".
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Default returns the settings used when no file is present.
func Default() *Config {
	return &Config{
		ProbeTimeout: Duration(engine.DefaultProbeTimeout),
		Parallelism:  1,
	}
}

// Validate rejects settings the scanner cannot honour.
func (c *Config) Validate() error {
	if c.ProbeTimeout < 0 {
		return errors.New("probe_timeout must not be negative")
	}
	if c.Parallelism < 0 {
		return errors.New("parallelism must not be negative")
	}
	return nil
}

// GetConfigPath returns ~/.nsenso/config.yaml.
func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".nsenso", "config.yaml"), nil
}

// Load reads path on top of the defaults. A missing file is not an error.
func Load(fs afero.Fs, path string) (*Config, error) {
	cfg := Default()
	data, err := afero.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read configuration file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode configuration file as YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating the parent directory.
func Save(fs afero.Fs, path string, cfg *Config) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create configuration directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode configuration as YAML: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0o600); err != nil {
		return fmt.Errorf("write configuration file: %w", err)
	}
	return nil
}
