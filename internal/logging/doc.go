// Package logging provides structured logging utilities for telegram-mcp.
//
// All logging goes through log/slog. NewLogger builds the process logger;
// the server passes os.Stderr because standard output carries the stdio MCP
// stream.
//
// # Usage Patterns
//
//	logger := logging.NewLogger(os.Stderr, slog.LevelInfo, os.Getenv("LOG_FORMAT"))
//	logging.WithTool(logger, "telegram_send_message").Info("sent",
//	    logging.ChatHash(chat),
//	    logging.Status(logging.StatusSuccess))
//
// # Security Considerations
//
//   - Chat references are hashed with AnonymizeChat before they reach general logs
//   - Bot tokens are reduced to the bot ID with SanitizeToken
package logging
