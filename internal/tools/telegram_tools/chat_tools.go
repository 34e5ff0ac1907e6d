package telegram_tools

import (
	"context"

	"github.com/teemow/telegram-mcp/internal/dispatch"
	"github.com/teemow/telegram-mcp/internal/telegram"
)

// Read-only tool names.
const (
	ToolGetMe             = "telegram_get_me"
	ToolGetChat           = "telegram_get_chat"
	ToolListChats         = "telegram_list_chats"
	ToolGetRecentMessages = "telegram_get_recent_messages"
)

type getMeInput struct{}

type getChatInput struct {
	ChatID string `json:"chat_id" jsonschema:"required,minLength=1,description=Chat ID (e.g. '123456789' or '-1001234567890') or @username"`
}

type listChatsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"minimum=1,maximum=100,description=Maximum number of chats to return (default: all seen)"`
}

type recentMessagesInput struct {
	ChatID string `json:"chat_id" jsonschema:"required,minLength=1,description=Chat ID or @username"`
	Limit  int    `json:"limit,omitempty" jsonschema:"minimum=1,maximum=100,description=Maximum number of messages to return (default: all seen)"`
}

func registerChatActions(d *Dispatcher, o observer) error {
	if err := dispatch.Register(d, dispatch.Action[Messenger, getMeInput, telegram.Profile]{
		Name:        ToolGetMe,
		Title:       "Get Telegram Profile",
		Description: "Get the profile of the logged-in Telegram account",
		ReadOnly:    true,
		Run: func(ctx context.Context, c Messenger, _ getMeInput) (telegram.Profile, error) {
			return observe(ctx, o, ToolGetMe, "", c.GetMe)
		},
	}); err != nil {
		return err
	}

	if err := dispatch.Register(d, dispatch.Action[Messenger, getChatInput, telegram.ChatInfo]{
		Name:        ToolGetChat,
		Title:       "Get Telegram Chat",
		Description: "Get details of a Telegram chat by ID or @username",
		ReadOnly:    true,
		Run: func(ctx context.Context, c Messenger, in getChatInput) (telegram.ChatInfo, error) {
			return observe(ctx, o, ToolGetChat, in.ChatID, func(ctx context.Context) (telegram.ChatInfo, error) {
				return c.GetChat(ctx, in.ChatID)
			})
		},
	}); err != nil {
		return err
	}

	if err := dispatch.Register(d, dispatch.Action[Messenger, listChatsInput, []telegram.ChatSummary]{
		Name:        ToolListChats,
		Title:       "List Telegram Chats",
		Description: "List chats with recent activity, most recently active first",
		ReadOnly:    true,
		Run: func(ctx context.Context, c Messenger, in listChatsInput) ([]telegram.ChatSummary, error) {
			return observe(ctx, o, ToolListChats, "", func(ctx context.Context) ([]telegram.ChatSummary, error) {
				return c.ListChats(ctx, in.Limit)
			})
		},
	}); err != nil {
		return err
	}

	return dispatch.Register(d, dispatch.Action[Messenger, recentMessagesInput, []telegram.MessageInfo]{
		Name:        ToolGetRecentMessages,
		Title:       "Get Recent Telegram Messages",
		Description: "Get recent messages of a chat, newest first",
		ReadOnly:    true,
		Run: func(ctx context.Context, c Messenger, in recentMessagesInput) ([]telegram.MessageInfo, error) {
			return observe(ctx, o, ToolGetRecentMessages, in.ChatID, func(ctx context.Context) ([]telegram.MessageInfo, error) {
				return c.RecentMessages(ctx, in.ChatID, in.Limit)
			})
		},
	})
}
