package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/pgcheck/internal/cli/config"
)

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration pgcheck uses after merging defaults, the
config file, PGCHECK_ environment variables and flags.`,
		Example: `  # Show the merged configuration
  pgcheck config

  # See what an environment variable changes
  PGCHECK_SCOPE=file pgcheck config`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfig(cmd)
		},
	}
}

func runConfig(cmd *cobra.Command) error {
	cfg := getConfig()
	out := cmd.OutOrStdout()

	if file := config.GetConfigFileUsed(); file != "" {
		_, _ = fmt.Fprintf(out, "# config file: %s\n", file)
	} else {
		_, _ = fmt.Fprintln(out, "# no config file found, using defaults")
	}
	_, _ = fmt.Fprintf(out, "# project root: %s\n", cfg.ProjectRoot)

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}
