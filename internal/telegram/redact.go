package telegram

import (
	"net/url"
	"strings"

	"github.com/teemow/telegram-mcp/internal/logging"
)

// redactedError hides the bot token in the text of err while keeping err
// reachable for errors.Is and errors.As.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string {
	return e.msg
}

func (e *redactedError) Unwrap() error {
	return e.err
}

// redactToken replaces every occurrence of token in the error text with its
// masked form. Errors that do not mention the token are returned unchanged.
func redactToken(err error, token string) error {
	if err == nil || token == "" {
		return err
	}

	msg := err.Error()
	masked := logging.SanitizeToken(token)
	redacted := strings.ReplaceAll(msg, token, masked)
	if escaped := url.PathEscape(token); escaped != token {
		redacted = strings.ReplaceAll(redacted, escaped, masked)
	}
	if redacted == msg {
		return err
	}
	return &redactedError{msg: redacted, err: err}
}
