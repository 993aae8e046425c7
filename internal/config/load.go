// internal/config/load.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Search order for the shared config file. The ASC_CONFIG environment
// variable, when set, is checked first.
var searchPaths = []string{
	"config/common_config.json",
	"../config/common_config.json",
	"../../config/common_config.json",
}

// Discover returns the first config path that exists on disk.
func Discover() (string, bool) {
	if p := os.Getenv("ASC_CONFIG"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// Load reads, normalizes, and validates the config at path.
// Absent keys keep builtin defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config read: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config parse %s: %w", path, err)
	}

	Normalize(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	cfg.Path = path
	return &cfg, nil
}

// LoadOrDefault loads the discovered config file, falling back to builtin
// defaults when no file is present.
func LoadOrDefault() (*Config, error) {
	path, ok := Discover()
	if !ok {
		cfg := Default()
		Normalize(&cfg)
		if err := Validate(&cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return Load(path)
}
