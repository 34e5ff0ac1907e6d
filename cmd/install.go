package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/telegram-mcp/internal/installer"
	"github.com/teemow/telegram-mcp/internal/logging"
)

func newInstallCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "install <client>",
		Short: "Register the server with an MCP host application",
		Long: fmt.Sprintf(`Add a telegram-mcp entry to the configuration of an MCP host.

Existing entries in the host's config file are kept. Values for
TELEGRAM_BOT_TOKEN, TELEGRAM_API_ENDPOINT and TELEGRAM_MCP_SESSION found in
the .env file are copied into the entry.

Clients: %s

The mcp-json client prints the entry instead of writing a file. Set
TELEGRAM_MCP_<CLIENT>_CONFIG to write to a different path.`, strings.Join(installer.ClientKeys(), ", ")),
		Args:      cobra.ExactArgs(1),
		ValidArgs: installer.ClientKeys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewSlogAdapter(logging.NewLogger(os.Stderr, slog.LevelInfo, os.Getenv("LOG_FORMAT")))
			inst := installer.New(logger)
			inst.EnvFile = envFile
			inst.Stdout = cmd.OutOrStdout()

			res, err := inst.Install(args[0])
			if err != nil {
				return err
			}
			if res.Path != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s MCP config at %s\n", res.Client.Name, res.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Environment file to read credentials from")
	return cmd
}
