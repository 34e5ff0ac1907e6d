// Package telegram provides the Telegram client used by the MCP tools.
//
// The client talks to the Telegram Bot API through go-telegram-bot-api and
// maps every response into small JSON friendly result types (identifiers are
// strings, timestamps are RFC 3339 in UTC).
//
// # Credentials
//
// A bot token is resolved in this order:
//
//  1. TELEGRAM_BOT_TOKEN
//  2. the session file written by `telegram-mcp login`
//     ($XDG_CONFIG_HOME/telegram-mcp/session.yaml, or TELEGRAM_MCP_SESSION)
//
// Login validates a token with getMe before persisting it, so a session file
// always holds a token that worked at least once.
//
// # Chat references
//
// Operations accept a chat as a numeric ID ("123", "-1001234567890") or a
// public username ("@channel"). Anything else is rejected with
// ErrInvalidChatRef before a request is made.
//
// # Reading history
//
// The Bot API has no history endpoint. ListChats and RecentMessages read the
// pending update queue with getUpdates without confirming it, so they only
// see chats and messages the bot received in the last 24 hours and they do
// not consume updates. They fail while a webhook is configured.
package telegram
