package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	var (
		login bool
		opts  serveOptions
	)

	cmd := &cobra.Command{
		Use:   "telegram-mcp",
		Short: "MCP server for a Telegram account",
		Long: `telegram-mcp exposes a Telegram account to AI assistants through the
Model Context Protocol.

Run with --login once to store a bot token, then start it without flags
(or with "serve") from your MCP host. Use "install <client>" to register
it with a host application.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if login {
				return runLogin(cmd.Context(), cmd.InOrStdin(), cmd.ErrOrStderr())
			}
			applyServeEnv(cmd, &opts, os.Getenv)
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&login, "login", false, "Log in interactively and store the session, then exit")
	bindServeFlags(cmd, &opts)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newInstallCmd())
	cmd.AddCommand(newGenerateDocsCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute is the main entry point for the CLI application. Any error exits
// with status 1; a graceful interrupt returns normally.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "telegram-mcp version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
