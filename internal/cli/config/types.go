// Package config provides configuration management for the pgcheck CLI.
//
// This package extends the shared project configuration from
// internal/config with CLI-specific fields. The shared types are
// re-exported here via type aliases for convenience.
package config

import (
	sharedcfg "github.com/leapstack-labs/pgcheck/internal/config"
)

// ProjectConfig is an alias for the shared project configuration.
type ProjectConfig = sharedcfg.ProjectConfig

// LintConfig is an alias for the shared lint configuration.
// This allows CLI code to use config.LintConfig without importing internal/config.
type LintConfig = sharedcfg.LintConfig

// RuleOptions is an alias for the shared rule options type.
type RuleOptions = sharedcfg.RuleOptions

// Config holds all CLI configuration options.
type Config struct {
	ProjectConfig `koanf:",squash" yaml:",inline"`

	Verbose      bool   `koanf:"verbose" yaml:"verbose"`
	OutputFormat string `koanf:"output" yaml:"output"`
	LogLevel     string `koanf:"log_level" yaml:"log_level"`
	LogFormat    string `koanf:"log_format" yaml:"log_format"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-" yaml:"-"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultCustomRulesDir = sharedcfg.DefaultCustomRulesDir
	DefaultScope          = sharedcfg.DefaultScope
	DefaultOutput         = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel       = "warn"
	DefaultLogFormat      = "text"
)

// EnvPrefix prefixes environment variables read by the CLI.
const EnvPrefix = "PGCHECK_"
