package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pgcheck/internal/cli/output"
	sharedcfg "github.com/leapstack-labs/pgcheck/internal/config"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a pgcheck.yaml configuration",
		Long: `Create a pgcheck.yaml with the default settings.

Use --example to also create a custom Starlark rule in .pgcheck/rules
and two sample migrations, one of which pgcheck reports.`,
		Example: `  # Initialize in current directory
  pgcheck init

  # Initialize with an example rule and migrations
  pgcheck init --example

  # Overwrite an existing configuration
  pgcheck init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cfg := getConfig()
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

			template := "minimal"
			if example {
				template = "example"
			}
			return runInit(r, dir, template, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&example, "example", false, "Also create an example custom rule and migrations")

	return cmd
}

func runInit(r *output.Renderer, dir, template string, force bool) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if existing := sharedcfg.FindConfigFile(dir); existing != "" && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", filepath.Base(existing))
	}

	if err := copyTemplate(template, dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	files, _ := listTemplateFiles(template)
	for _, f := range files {
		r.Success(f)
	}

	r.Println("")
	r.Success("pgcheck initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  pgcheck check         Check the migrations below this directory")
	r.Println("  pgcheck rules         See which rules are enabled")
	if template == "example" {
		r.Println("  pgcheck rules custom  See the example custom rule")
	}
	return nil
}
