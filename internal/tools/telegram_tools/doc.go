// Package telegram_tools provides the MCP tools and prompts for a Telegram
// account.
//
// Every action is registered once with a dispatch.Dispatcher over the
// Messenger interface and exposed twice: as a tool whose result is the
// indented JSON envelope, and as a prompt with the same arguments whose
// only message is that JSON or a short error line.
//
// # Available Tools
//
// Read-only:
//   - telegram_get_me: Profile of the logged-in account
//   - telegram_get_chat: Details of a chat by ID or @username
//   - telegram_list_chats: Chats with recent activity
//   - telegram_get_recent_messages: Recent messages of one chat
//
// Write (hidden with --read-only):
//   - telegram_send_message, telegram_reply_to_message
//   - telegram_edit_message, telegram_delete_message
//   - telegram_forward_message, telegram_pin_message
//   - telegram_add_reaction
//
// # Errors
//
// Invalid arguments and malformed chat references are bad_input. A client
// that cannot be created, was closed, or whose token is rejected is
// client_unavailable. Any other Bot API error is internal_error and carries
// the error text.
package telegram_tools
