// Package config holds the names, defaults and the refssa.yaml options file
// shared by the lowering core, the interpreter and the driver.
//
// The options file is optional. When present it looks like:
//
//	lowering:
//	  bounds_checks: true
//	runtime:
//	  step_limit: 1000000
//	  max_call_depth: 256
//	cache:
//	  enabled: true
//	  path: .refssa/cache.db
//	log:
//	  level: info
//	output:
//	  color: auto
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level refssa.yaml configuration.
type Config struct {
	Lowering Lowering `yaml:"lowering"`
	Runtime  Runtime  `yaml:"runtime"`
	Cache    Cache    `yaml:"cache"`
	Log      Log      `yaml:"log"`
	Output   Output   `yaml:"output"`
}

// Lowering tunes the SSA lowering engines.
type Lowering struct {
	// BoundsChecks emits runtime guards for slice operations whose length or
	// index is not known at compile time. Defaults to true.
	BoundsChecks *bool `yaml:"bounds_checks,omitempty"`
}

// BoundsChecksEnabled resolves the BoundsChecks default.
func (l Lowering) BoundsChecksEnabled() bool {
	return l.BoundsChecks == nil || *l.BoundsChecks
}

// Runtime bounds the SSA interpreter.
type Runtime struct {
	// StepLimit is the maximum number of instructions one call may execute.
	StepLimit int `yaml:"step_limit,omitempty"`

	// MaxCallDepth is the maximum nesting of SSA function calls.
	MaxCallDepth int `yaml:"max_call_depth,omitempty"`
}

// Cache configures the artifact cache of encoded modules.
type Cache struct {
	Enabled bool `yaml:"enabled"`

	// Path of the SQLite database, relative to the config file.
	Path string `yaml:"path,omitempty"`
}

// Log configures the driver's structured logger.
type Log struct {
	Level string `yaml:"level,omitempty"`
}

// Output configures printed SSA.
type Output struct {
	// Color is one of auto, always, never.
	Color string `yaml:"color,omitempty"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults("")
	return cfg
}

// LoadConfig reads and parses a refssa.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses refssa.yaml content from bytes.
// The path argument is used for error messages and to resolve relative paths.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults(filepath.Dir(path))
	return &cfg, nil
}

// FindConfig searches for refssa.yaml starting from dir and walking up
// to parent directories.
// Returns the path to the config file, or empty string and nil error if not found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// validate checks the configuration for semantic errors.
func (c *Config) validate(path string) error {
	if c.Runtime.StepLimit < 0 {
		return fmt.Errorf("%s: runtime.step_limit must not be negative", path)
	}
	if c.Runtime.MaxCallDepth < 0 {
		return fmt.Errorf("%s: runtime.max_call_depth must not be negative", path)
	}
	if c.Log.Level != "" {
		if _, err := ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("%s: log.level: %w", path, err)
		}
	}
	switch c.Output.Color {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("%s: output.color must be auto, always or never, got %q", path, c.Output.Color)
	}
	return nil
}

// setDefaults fills zero values. baseDir anchors a relative cache path.
func (c *Config) setDefaults(baseDir string) {
	if c.Runtime.StepLimit == 0 {
		c.Runtime.StepLimit = DefaultStepLimit
	}
	if c.Runtime.MaxCallDepth == 0 {
		c.Runtime.MaxCallDepth = DefaultMaxCallDepth
	}
	if c.Cache.Path == "" {
		c.Cache.Path = DefaultCachePath
	}
	if baseDir != "" && !filepath.IsAbs(c.Cache.Path) {
		c.Cache.Path = filepath.Join(baseDir, c.Cache.Path)
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Output.Color == "" {
		c.Output.Color = DefaultColorMode
	}
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
