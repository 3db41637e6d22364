package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pgcheck/internal/cli/config"
	"github.com/leapstack-labs/pgcheck/internal/lsp"
)

// NewLSPCommand creates the lsp command.
func NewLSPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the language server",
		Long: `Start the pgcheck language server.

The server speaks JSON-RPC over stdin and stdout. It publishes
diagnostics for open .sql files, describes the transaction state of
the statement under the cursor and offers suppression quick fixes.

The project is the directory holding pgcheck.yaml at or above the
client's root. Saving pgcheck.yaml or a custom rule reloads it.`,
		Example: `  # Usually started by the editor
  pgcheck lsp --stdio`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := config.GetLogger(cmd.Context())
			server := lsp.NewServerWithLogger(cmd.InOrStdin(), cmd.OutOrStdout(), logger)
			if err := server.Run(); err != nil {
				return fmt.Errorf("language server: %w", err)
			}
			return nil
		},
	}

	// Editors pass --stdio; it is the only transport.
	cmd.Flags().Bool("stdio", true, "Communicate over stdin and stdout")

	return cmd
}
