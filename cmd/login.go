package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/teemow/telegram-mcp/internal/telegram"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Store a Telegram bot token for the server",
		Long: `Verify a bot token against the Telegram Bot API and store it in the
session file ($TELEGRAM_MCP_SESSION or the user config directory).

The token is taken from TELEGRAM_BOT_TOKEN when set, otherwise it is read
from stdin. On a terminal the input is hidden.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), cmd.InOrStdin(), cmd.ErrOrStderr())
		},
	}
}

func runLogin(ctx context.Context, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := telegram.LoadConfig()
	if err != nil {
		return err
	}

	token := cfg.Token
	if token == "" {
		token, err = readToken(in, out)
		if err != nil {
			return err
		}
	}

	session, err := telegram.Login(ctx, cfg, token)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Fprintf(out, "Logged in as @%s (id %d)\n", session.Username, session.BotID)
	fmt.Fprintf(out, "Session saved to %s\n", cfg.SessionPath)
	return nil
}

// readToken prompts for a token. Terminal input is not echoed.
func readToken(in io.Reader, out io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(out, "Bot token: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return "", errors.New("no token provided")
	}
	return token, nil
}
