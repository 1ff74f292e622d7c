package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags < -query.
func Load() (*Config, error) {
	cfg := Default()

	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)

	if *flagQuery != "" {
		if err := ApplyQuery(cfg, *flagQuery); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads defaults overlaid by one YAML file, without flags.
// An empty path returns validated defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyQuery applies the page-style parameters dem_url, los_url,
// camera_angle and azimuth from a URL query string. A leading '?' is
// accepted. Numbers that do not parse leave the current value and are
// reported together in the returned error; every valid parameter is still
// applied.
func ApplyQuery(cfg *Config, rawQuery string) error {
	values, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		return fmt.Errorf("parsing query: %w", err)
	}

	if v := values.Get("dem_url"); v != "" {
		cfg.Sources.DEMURL = v
	}
	if v := values.Get("los_url"); v != "" {
		cfg.Sources.LOSURL = v
	}

	var errs error
	parse := func(key string, dst *float64) {
		v := values.Get(key)
		if v == "" {
			return
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("query %s=%q: %w", key, v, err))
			return
		}
		*dst = f
	}
	parse("camera_angle", &cfg.Camera.Angle)
	parse("azimuth", &cfg.Camera.Azimuth)

	return errs
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./terrain3d.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Terrain3D")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Terrain3D")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "terrain3d")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "terrain3d")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
