// Package config provides YAML configuration loading and validation for a
// debug session: the target binary to launch, the SLEIGH language files
// that decode it, and the addresses of the session's ambient services.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SessionConfig is the top-level configuration for one debug session.
type SessionConfig struct {
	// Target is the path to the executable to launch under the debugger.
	// Required.
	Target string `yaml:"target"`

	// Args is the target's argv, excluding argv[0]. Optional.
	Args []string `yaml:"args"`

	// SlaPath is the path to the compiled SLEIGH language file (.sla) for
	// the target's instruction set. Required.
	SlaPath string `yaml:"sla_path"`

	// PspecPath is the path to the processor-spec file (.pspec) pairing
	// register definitions with the .sla file's varnode storage. Required.
	PspecPath string `yaml:"pspec_path"`

	// Breakpoints lists addresses, as hex strings (e.g. "0x401000"), to
	// arm automatically once the target stops at its first event.
	Breakpoints []string `yaml:"breakpoints"`

	// JournalPath is the SQLite database file the session's lifecycle
	// journal appends to. Defaults to "session.journal.db" when omitted.
	JournalPath string `yaml:"journal_path"`

	// HTTPAddr is the listen address for the HTTP introspection API
	// (e.g. "127.0.0.1:9000"). Defaults to "127.0.0.1:9000" when omitted.
	HTTPAddr string `yaml:"http_addr"`

	// LogLevel sets the minimum log severity: "debug", "info", "warn", or
	// "error". Defaults to "info" when omitted.
	LogLevel string `yaml:"log_level"`
}

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// LoadConfig reads the YAML file at path, unmarshals it into SessionConfig,
// applies defaults, and validates all required fields. It returns a typed
// error describing every validation failure encountered, joined together.
func LoadConfig(path string) (*SessionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %q: %w", path, err)
	}

	var cfg SessionConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: cannot parse %q: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed for %q: %w", path, err)
	}

	return &cfg, nil
}

// applyDefaults fills in zero-value optional fields with sensible defaults.
func applyDefaults(cfg *SessionConfig) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = "127.0.0.1:9000"
	}
	if cfg.JournalPath == "" {
		cfg.JournalPath = "session.journal.db"
	}
}

// validate checks that all required fields are populated and that
// enumerated fields contain only valid values.
func validate(cfg *SessionConfig) error {
	var errs []error

	if cfg.Target == "" {
		errs = append(errs, errors.New("target is required"))
	}
	if cfg.SlaPath == "" {
		errs = append(errs, errors.New("sla_path is required"))
	}
	if cfg.PspecPath == "" {
		errs = append(errs, errors.New("pspec_path is required"))
	}
	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level %q must be one of: debug, info, warn, error", cfg.LogLevel))
	}

	for i, bp := range cfg.Breakpoints {
		if bp == "" {
			errs = append(errs, fmt.Errorf("breakpoints[%d]: must not be empty", i))
		}
	}

	return errors.Join(errs...)
}
