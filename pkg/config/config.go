// Package config loads the small set of defaults the jobctl CLI and demo
// workflows need, the same way the rest of this codebase loads
// configuration: a flat struct unmarshaled from YAML via gopkg.in/yaml.v3,
// with zero values falling back to sane defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EngineDefaults holds the Scheduler- and Job-level defaults applied when
// a workflow file or CLI flag doesn't override them.
type EngineDefaults struct {
	DefaultTimeout    time.Duration `yaml:"default_timeout"`
	DefaultMaxRetries int           `yaml:"default_max_retries"`
	FailOnBusy        bool          `yaml:"fail_on_busy"`
	LogLevel          string        `yaml:"log_level"`
}

// DefaultEngineDefaults returns the built-in fallback values, used when no
// config file is supplied or a file leaves a field unset.
func DefaultEngineDefaults() EngineDefaults {
	return EngineDefaults{
		DefaultTimeout:    30 * time.Second,
		DefaultMaxRetries: 1,
		FailOnBusy:        false,
		LogLevel:          "INFO",
	}
}

// LoadEngineDefaults reads an EngineDefaults from path, a YAML file. A
// missing path returns the built-in defaults rather than an error, since
// jobctl is expected to run with zero configuration out of the box.
func LoadEngineDefaults(path string) (EngineDefaults, error) {
	defaults := DefaultEngineDefaults()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return defaults, nil
	}
	if err != nil {
		return EngineDefaults{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return EngineDefaults{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return defaults, nil
}
