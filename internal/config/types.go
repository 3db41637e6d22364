// Package config provides the shared project configuration for pgcheck.
// It is decoupled from CLI concerns so the LSP can load the same
// pgcheck.yaml the command line uses.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/pgcheck/pkg/lint"
	"github.com/leapstack-labs/pgcheck/pkg/tracker"
)

// LintConfig holds lint rule configuration.
type LintConfig struct {
	// All enables every rule, not just the recommended ones.
	All bool `koanf:"all" yaml:"all"`

	// Enable and Disable contain rule or group selectors, such as
	// "banDropColumn", "safety" or "lint/safety/banDropColumn".
	Enable  []string `koanf:"enable" yaml:"enable,omitempty"`
	Disable []string `koanf:"disable" yaml:"disable,omitempty"`

	// Only replaces the recommended set with the selected rules.
	Only []string `koanf:"only" yaml:"only,omitempty"`

	// Severity maps a selector to a severity override.
	Severity map[string]lint.Severity `koanf:"severity" yaml:"severity,omitempty"`

	// Rules maps a selector to rule options.
	Rules map[string]RuleOptions `koanf:"rules" yaml:"rules,omitempty"`

	// DocsURL overrides the base URL of rule documentation links.
	DocsURL string `koanf:"docs_url" yaml:"docs_url,omitempty"`
}

// RuleOptions holds rule-specific configuration options.
type RuleOptions map[string]any

// ToLintConfig converts the configuration into a lint.Config. Maps are
// applied in key order so the result does not depend on map iteration.
func (l *LintConfig) ToLintConfig() *lint.Config {
	cfg := lint.NewConfig()
	if l == nil {
		return cfg
	}
	if l.All {
		cfg.All()
	}
	if len(l.Only) > 0 {
		cfg.Only(l.Only...)
	}
	cfg.Enable(l.Enable...)
	cfg.Disable(l.Disable...)
	for _, sel := range sortedKeys(l.Severity) {
		cfg.SetSeverity(sel, l.Severity[sel])
	}
	for _, sel := range sortedKeys(l.Rules) {
		cfg.SetRuleOptions(sel, l.Rules[sel])
	}
	return cfg
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ProjectConfig holds the configuration shared by the CLI and the LSP.
type ProjectConfig struct {
	// CustomRulesDir holds .star files with custom rules. Relative paths
	// are resolved against the project root.
	CustomRulesDir string `koanf:"custom_rules_dir" yaml:"custom_rules_dir"`

	// Scope is the transaction scope policy: "transaction" or "file".
	Scope string `koanf:"scope" yaml:"scope"`

	// Exclude lists glob patterns of files to skip when expanding
	// directories.
	Exclude []string `koanf:"exclude" yaml:"exclude,omitempty"`

	Lint *LintConfig `koanf:"lint" yaml:"lint"`

	Analysis AnalysisConfig `koanf:"analysis" yaml:"analysis,omitempty"`
}

// AnalysisConfig tunes the artifact caches. Zero keeps the built-in
// defaults.
type AnalysisConfig struct {
	CacheCapacity int `koanf:"cache_capacity" yaml:"cache_capacity,omitempty"`
	CacheShards   int `koanf:"cache_shards" yaml:"cache_shards,omitempty"`
}

// ApplyDefaults fills in unset values.
func (c *ProjectConfig) ApplyDefaults() {
	if c.CustomRulesDir == "" {
		c.CustomRulesDir = DefaultCustomRulesDir
	}
	if c.Scope == "" {
		c.Scope = DefaultScope
	}
	if c.Lint == nil {
		c.Lint = &LintConfig{}
	}
}

// ScopePolicy returns the parsed scope policy.
func (c *ProjectConfig) ScopePolicy() (tracker.ScopePolicy, error) {
	p, ok := tracker.ParseScopePolicy(c.Scope)
	if !ok {
		return p, fmt.Errorf("invalid scope %q: must be transaction or file", c.Scope)
	}
	return p, nil
}

// Validate checks if the configuration is valid.
func (c *ProjectConfig) Validate() error {
	if _, err := c.ScopePolicy(); err != nil {
		return err
	}
	if c.Analysis.CacheCapacity < 0 || c.Analysis.CacheShards < 0 {
		return fmt.Errorf("analysis: cache_capacity and cache_shards must not be negative")
	}
	if c.Lint == nil {
		return nil
	}
	for sel := range c.Lint.Severity {
		if strings.TrimSpace(sel) == "" {
			return fmt.Errorf("lint.severity: empty rule selector")
		}
	}
	for sel := range c.Lint.Rules {
		if strings.TrimSpace(sel) == "" {
			return fmt.Errorf("lint.rules: empty rule selector")
		}
	}
	return nil
}
