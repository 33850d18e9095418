// Package config loads and saves the batch-mover settings stored at
// ~/.batch-mover/config.toml.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Digital-Shane/batch-mover/internal/apply"
	"github.com/Digital-Shane/batch-mover/internal/preview"
	"github.com/rs/zerolog"
)

// Config holds the user settings.
type Config struct {
	EnableLogging    bool   `toml:"enable_logging"`
	LogRetentionDays int    `toml:"log_retention_days"`
	LogLevel         string `toml:"log_level"`
	// LogFile receives the diagnostic log. Empty means
	// ~/.batch-mover/batch-mover.log.
	LogFile string `toml:"log_file"`

	ClearPolicy       string `toml:"clear_policy"`
	Workers           int    `toml:"workers"`
	OverwriteExisting bool   `toml:"overwrite_existing"`

	PreviewWidth    int      `toml:"preview_width"`
	ImageExtensions []string `toml:"image_extensions"`
	MeshExtensions  []string `toml:"mesh_extensions"`

	// StartDir is where the file picker opens. Empty means the working
	// directory.
	StartDir string `toml:"start_dir"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		EnableLogging:     true,
		LogRetentionDays:  30,
		LogLevel:          "info",
		ClearPolicy:       string(apply.PolicyClearOnSuccess),
		Workers:           1,
		OverwriteExisting: false,
		PreviewWidth:      40,
		ImageExtensions:   append([]string(nil), preview.DefaultImageExtensions...),
		MeshExtensions:    append([]string(nil), preview.DefaultMeshExtensions...),
	}
}

// Dir returns ~/.batch-mover.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".batch-mover"), nil
}

// ConfigPath returns the path to the config file
func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the configuration from ConfigPath. A missing file yields the
// defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the configuration at path on top of the defaults, so keys
// absent from the file keep their default value.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// normalize replaces out-of-range values with defaults.
func (cfg *Config) normalize() {
	defaults := DefaultConfig()
	if cfg.LogRetentionDays < 0 {
		cfg.LogRetentionDays = defaults.LogRetentionDays
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	if strings.TrimSpace(cfg.ClearPolicy) == "" {
		cfg.ClearPolicy = defaults.ClearPolicy
	}
	if cfg.Workers < 1 {
		cfg.Workers = defaults.Workers
	}
	if cfg.PreviewWidth < 8 {
		cfg.PreviewWidth = defaults.PreviewWidth
	}
	if len(cfg.ImageExtensions) == 0 {
		cfg.ImageExtensions = defaults.ImageExtensions
	}
	if len(cfg.MeshExtensions) == 0 {
		cfg.MeshExtensions = defaults.MeshExtensions
	}
}

// Validate checks the enumerated settings.
func (cfg *Config) Validate() error {
	if _, err := apply.ParsePolicy(cfg.ClearPolicy); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	return nil
}

// Policy returns the parsed clear policy.
func (cfg *Config) Policy() apply.ClearPolicy {
	p, err := apply.ParsePolicy(cfg.ClearPolicy)
	if err != nil {
		return apply.PolicyClearOnSuccess
	}
	return p
}

// LogPath resolves LogFile.
func (cfg *Config) LogPath() (string, error) {
	if cfg.LogFile != "" {
		return cfg.LogFile, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "batch-mover.log"), nil
}

// PreviewOptions returns the preview settings as renderer options.
func (cfg *Config) PreviewOptions() []preview.Option {
	return []preview.Option{
		preview.WithImageExtensions(cfg.ImageExtensions...),
		preview.WithMeshExtensions(cfg.MeshExtensions...),
	}
}

// Encode writes cfg as TOML.
func (cfg *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// Save writes the configuration to ConfigPath.
func (cfg *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return cfg.SaveFile(path)
}

// SaveFile writes the configuration to path, creating its directory.
func (cfg *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	defer f.Close()

	if err := cfg.Encode(f); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
