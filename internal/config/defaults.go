package config

// Default configuration values.
const (
	DefaultCustomRulesDir = ".pgcheck/rules"
	DefaultScope          = "transaction"
)

// Default returns a ProjectConfig with defaults applied.
func Default() *ProjectConfig {
	cfg := &ProjectConfig{}
	cfg.ApplyDefaults()
	return cfg
}
