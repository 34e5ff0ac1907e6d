package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teemow/telegram-mcp/internal/telegram"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored Telegram session",
		Long: `Delete the session file written by login. A token set through
TELEGRAM_BOT_TOKEN is not affected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.OutOrStdout())
		},
	}
}

func runLogout(out io.Writer) error {
	cfg, err := telegram.LoadConfig()
	if err != nil {
		return err
	}
	if err := telegram.DeleteSession(cfg.SessionPath); err != nil {
		return err
	}
	fmt.Fprintf(out, "Session removed from %s\n", cfg.SessionPath)
	return nil
}
