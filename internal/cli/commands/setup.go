package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pgcheck/internal/cli/config"
	"github.com/leapstack-labs/pgcheck/internal/cli/output"
	sharedcfg "github.com/leapstack-labs/pgcheck/internal/config"
	"github.com/leapstack-labs/pgcheck/internal/workspace"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with a renderer for the
// configured output mode.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// WithFormat replaces the renderer when format is set.
func (c *CommandContext) WithFormat(cmd *cobra.Command, format string) {
	if format != "" {
		c.Renderer = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(format))
	}
}

// Workspace builds a workspace for project, which defaults to the loaded
// project configuration.
func (c *CommandContext) Workspace(project *config.ProjectConfig, opts ...workspace.Option) (*workspace.Workspace, error) {
	if project == nil {
		project = &c.Cfg.ProjectConfig
	}
	return sharedcfg.NewWorkspace(project, c.Cfg.ProjectRoot, c.Logger, opts...)
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to
// defaults rooted at the working directory.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	root, err := os.Getwd()
	if err != nil {
		root = "."
	}
	cfg := &config.Config{
		ProjectConfig: *sharedcfg.Default(),
		OutputFormat:  getEnvOrDefault(config.EnvPrefix+"OUTPUT", config.DefaultOutput),
		LogLevel:      config.DefaultLogLevel,
		LogFormat:     config.DefaultLogFormat,
		ProjectRoot:   root,
	}
	return cfg
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
