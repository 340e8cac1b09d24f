// Package config loads the optional admgen.yaml tool configuration.
//
// The file is looked up next to the schema being generated, then in the
// working directory. It supplies defaults the command-line flags can
// override:
//
//	out: ./generated
//	registry: ~/.admgen/registry.yaml
//	dialect: pgsql
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds tool defaults from admgen.yaml.
type Config struct {
	// Out is the default output directory.
	Out string `yaml:"out"`
	// Registry is the path to the namespace nickname registry.
	Registry string `yaml:"registry"`
	// Dialect selects the SQL dialect of the database artifact.
	Dialect string `yaml:"dialect"`
}

// Load reads admgen.yaml from dir. Returns nil (not an error) if the file
// does not exist. Safe to call methods on the nil result.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "admgen.yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return &c, nil
}

// OutDir returns the configured output directory or fallback. Safe on a nil
// receiver.
func (c *Config) OutDir(fallback string) string {
	if c == nil || c.Out == "" {
		return fallback
	}
	return c.Out
}

// RegistryPath returns the configured registry path or fallback.
func (c *Config) RegistryPath(fallback string) string {
	if c == nil || c.Registry == "" {
		return fallback
	}
	return c.Registry
}

// SQLDialect returns the configured dialect or fallback.
func (c *Config) SQLDialect(fallback string) string {
	if c == nil || c.Dialect == "" {
		return fallback
	}
	return c.Dialect
}
