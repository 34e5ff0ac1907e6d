package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyChat      = "chat"
	KeyChatHash  = "chat_hash"
	KeyKind      = "kind"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyTool      = "tool"
)

// Status values for consistent logging.
// Note: These are intentionally duplicated from instrumentation package
// to avoid circular dependencies.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Log formats accepted by NewLogger.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// NewLogger builds the process logger. Format "json" selects the JSON
// handler, anything else the text handler.
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(strings.TrimSpace(format), FormatJSON) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Kind returns a slog attribute for a failure kind.
func Kind(kind string) slog.Attr {
	return slog.String(KeyKind, kind)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeChat returns a hashed representation of a chat reference so log
// entries about the same chat can be correlated without naming it.
func AnonymizeChat(chat string) string {
	chat = strings.ToLower(strings.TrimSpace(chat))
	if chat == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(chat))
	return "chat:" + hex.EncodeToString(hash[:8])
}

// ChatHash returns a slog attribute with the anonymized chat reference.
//
// Usage:
//
//	logger.Info("message sent", logging.ChatHash(chatID))
func ChatHash(chat string) slog.Attr {
	return slog.String(KeyChatHash, AnonymizeChat(chat))
}

// SanitizeToken returns a masked version of a bot token for logging.
// Only the bot ID before the colon is kept; the secret is reduced to its length.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	if id, secret, ok := strings.Cut(token, ":"); ok && id != "" {
		return fmt.Sprintf("%s:[%d chars]", id, len(secret))
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
