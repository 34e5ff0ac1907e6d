package telegram

import (
	"errors"
	"fmt"
)

var (
	// ErrNotLoggedIn is returned when no token is configured and no session
	// file exists.
	ErrNotLoggedIn = errors.New("not logged in: run `telegram-mcp login` or set TELEGRAM_BOT_TOKEN")

	// ErrClosed is returned by a client after Close.
	ErrClosed = errors.New("telegram client is closed")

	// ErrInvalidChatRef is returned for chat references that are neither a
	// numeric ID nor an @username.
	ErrInvalidChatRef = errors.New("invalid chat reference")
)

// TelegramError represents an error that occurred during a Telegram operation
type TelegramError struct {
	// Op is the operation that failed (e.g., "sendMessage", "getChat")
	Op string

	// Chat is the chat reference involved, if any
	Chat string

	// Err is the underlying error
	Err error
}

// Error implements the error interface
func (e *TelegramError) Error() string {
	if e.Chat != "" {
		return fmt.Sprintf("telegram %s (chat: %s): %v", e.Op, e.Chat, e.Err)
	}
	return fmt.Sprintf("telegram %s: %v", e.Op, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *TelegramError) Unwrap() error {
	return e.Err
}

// Profile describes the account the client is logged in as.
type Profile struct {
	ID                      string `json:"id"`
	Username                string `json:"username,omitempty"`
	FirstName               string `json:"first_name,omitempty"`
	LastName                string `json:"last_name,omitempty"`
	IsBot                   bool   `json:"is_bot"`
	CanJoinGroups           bool   `json:"can_join_groups"`
	CanReadAllGroupMessages bool   `json:"can_read_all_group_messages"`
}

// ChatInfo describes a single chat.
type ChatInfo struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title,omitempty"`
	Username    string `json:"username,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Description string `json:"description,omitempty"`
}

// ChatSummary is a chat seen in recent updates.
type ChatSummary struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	Name            string `json:"name"`
	Username        string `json:"username,omitempty"`
	LastMessageID   string `json:"last_message_id"`
	LastMessageDate string `json:"last_message_date"`
}

// MessageInfo is a message seen in recent updates.
type MessageInfo struct {
	MessageID        string `json:"message_id"`
	ChatID           string `json:"chat_id"`
	ChatName         string `json:"chat_name,omitempty"`
	From             string `json:"from,omitempty"`
	Date             string `json:"date"`
	EditDate         string `json:"edit_date,omitempty"`
	Text             string `json:"text,omitempty"`
	ReplyToMessageID string `json:"reply_to_message_id,omitempty"`
}

// SentMessage identifies a message created by the client.
type SentMessage struct {
	MessageID string `json:"message_id"`
	Date      string `json:"date"`
}

// EditedMessage is the result of an edit.
type EditedMessage struct {
	MessageID string `json:"message_id"`
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	EditDate  string `json:"edit_date,omitempty"`
}

// ActionResult reports the outcome of an operation that returns no message.
type ActionResult struct {
	OK        bool   `json:"ok"`
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
}
