// Package config loads the server configuration from YAML.
//
// A missing file is not an error: Load returns Default() so the server
// runs unconfigured. Values present in the file override the defaults
// field by field.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration.
type Config struct {
	Log struct {
		// Level is one of debug, info, warn, error.
		Level string `yaml:"level"`
	} `yaml:"log"`

	Catalog struct {
		// Path of the SQLite catalog. Empty disables the catalog tools.
		Path string `yaml:"path"`
	} `yaml:"catalog"`

	Render struct {
		Scale        float64  `yaml:"scale"`
		Contrast     float64  `yaml:"contrast"`
		Gamma        float64  `yaml:"gamma"`
		Colormap     []string `yaml:"colormap"`
		FlipVertical bool     `yaml:"flipVertical"`
	} `yaml:"render"`

	Limits struct {
		// MaxPlanePixels caps the samples decoded per request; 0 disables
		// the cap.
		MaxPlanePixels int `yaml:"maxPlanePixels"`
	} `yaml:"limits"`
}

// DefaultColormap runs from low (blue) to high (red) through green.
var DefaultColormap = []string{"#2c7bb6", "#abd9e9", "#ffffbf", "#fdae61", "#d7191c"}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Log.Level = "info"
	cfg.Catalog.Path = defaultCatalogPath()
	cfg.Render.Scale = 1.0
	cfg.Render.Gamma = 1.0
	cfg.Render.Colormap = append([]string(nil), DefaultColormap...)
	cfg.Limits.MaxPlanePixels = 16 * 1024 * 1024
	return cfg
}

func defaultCatalogPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "psi-tools-mcp", "catalog.db")
}

// Load reads the configuration at path on top of Default(). An empty
// path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Validate rejects values the server cannot use.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q: want debug, info, warn or error", c.Log.Level)
	}
	if c.Render.Scale < 0 {
		return fmt.Errorf("render.scale %v is negative", c.Render.Scale)
	}
	if c.Render.Contrast < -1 || c.Render.Contrast > 1 {
		return fmt.Errorf("render.contrast %v is outside [-1, 1]", c.Render.Contrast)
	}
	if c.Render.Gamma < 0 {
		return fmt.Errorf("render.gamma %v is negative", c.Render.Gamma)
	}
	if n := len(c.Render.Colormap); n == 1 {
		return errors.New("render.colormap needs at least two stops")
	}
	if c.Limits.MaxPlanePixels < 0 {
		return fmt.Errorf("limits.maxPlanePixels %d is negative", c.Limits.MaxPlanePixels)
	}
	return nil
}
