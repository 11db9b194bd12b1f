package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads path, substitutes environment references, parses the
// YAML, applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse runs the same substitute/unmarshal/default/validate pipeline
// as Load directly over in-memory YAML bytes, used by tests and by
// callers embedding a config inline instead of on disk.
func Parse(data []byte) (*Config, error) {
	substituted := substituteEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(substituted), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
