package telegram_tools

import (
	"context"

	"github.com/teemow/telegram-mcp/internal/dispatch"
	"github.com/teemow/telegram-mcp/internal/telegram"
)

// Write tool names. They are not registered in read-only mode.
const (
	ToolSendMessage    = "telegram_send_message"
	ToolReplyToMessage = "telegram_reply_to_message"
	ToolEditMessage    = "telegram_edit_message"
	ToolDeleteMessage  = "telegram_delete_message"
	ToolForwardMessage = "telegram_forward_message"
	ToolPinMessage     = "telegram_pin_message"
	ToolAddReaction    = "telegram_add_reaction"
)

type sendMessageInput struct {
	ChatID                string `json:"chat_id" jsonschema:"required,minLength=1,description=Chat ID or @username"`
	Text                  string `json:"text" jsonschema:"required,minLength=1,description=Message text"`
	ParseMode             string `json:"parse_mode,omitempty" jsonschema:"enum=Markdown,enum=MarkdownV2,enum=HTML,description=Optional formatting mode"`
	DisableNotification   bool   `json:"disable_notification,omitempty" jsonschema:"description=Send silently"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty" jsonschema:"description=Do not render link previews"`
}

func (in sendMessageInput) options() telegram.MessageOptions {
	return telegram.MessageOptions{
		ParseMode:             in.ParseMode,
		DisableNotification:   in.DisableNotification,
		DisableWebPagePreview: in.DisableWebPagePreview,
	}
}

type replyInput struct {
	ChatID              string `json:"chat_id" jsonschema:"required,minLength=1,description=Chat ID or @username"`
	MessageID           int64  `json:"message_id" jsonschema:"required,minimum=1,description=ID of the message to reply to"`
	Text                string `json:"text" jsonschema:"required,minLength=1,description=Reply text"`
	ParseMode           string `json:"parse_mode,omitempty" jsonschema:"enum=Markdown,enum=MarkdownV2,enum=HTML,description=Optional formatting mode"`
	DisableNotification bool   `json:"disable_notification,omitempty" jsonschema:"description=Send silently"`
}

type editInput struct {
	ChatID    string `json:"chat_id" jsonschema:"required,minLength=1,description=Chat ID or @username"`
	MessageID int64  `json:"message_id" jsonschema:"required,minimum=1,description=ID of the message to edit"`
	Text      string `json:"text" jsonschema:"required,minLength=1,description=New message text"`
}

type messageRefInput struct {
	ChatID    string `json:"chat_id" jsonschema:"required,minLength=1,description=Chat ID or @username"`
	MessageID int64  `json:"message_id" jsonschema:"required,minimum=1,description=Message ID"`
}

type forwardInput struct {
	ToChatID   string `json:"to_chat_id" jsonschema:"required,minLength=1,description=Destination chat ID or @username"`
	FromChatID string `json:"from_chat_id" jsonschema:"required,minLength=1,description=Source chat ID or @username"`
	MessageID  int64  `json:"message_id" jsonschema:"required,minimum=1,description=ID of the message in the source chat"`
}

type pinInput struct {
	ChatID              string `json:"chat_id" jsonschema:"required,minLength=1,description=Chat ID or @username"`
	MessageID           int64  `json:"message_id" jsonschema:"required,minimum=1,description=ID of the message to pin"`
	DisableNotification bool   `json:"disable_notification,omitempty" jsonschema:"description=Pin without notifying members"`
}

type reactionInput struct {
	ChatID    string `json:"chat_id" jsonschema:"required,minLength=1,description=Chat ID or @username"`
	MessageID int64  `json:"message_id" jsonschema:"required,minimum=1,description=ID of the message to react to"`
	Emoji     string `json:"emoji,omitempty" jsonschema:"description=Reaction emoji; omit to remove the reaction"`
}

func registerMessageActions(d *Dispatcher, o observer) error {
	if err := dispatch.Register(d, dispatch.Action[Messenger, sendMessageInput, telegram.SentMessage]{
		Name:        ToolSendMessage,
		Title:       "Send Telegram Message",
		Description: "Send a text message to a chat",
		Run: func(ctx context.Context, c Messenger, in sendMessageInput) (telegram.SentMessage, error) {
			return observe(ctx, o, ToolSendMessage, in.ChatID, func(ctx context.Context) (telegram.SentMessage, error) {
				return c.SendMessage(ctx, in.ChatID, in.Text, in.options())
			})
		},
	}); err != nil {
		return err
	}

	if err := dispatch.Register(d, dispatch.Action[Messenger, replyInput, telegram.SentMessage]{
		Name:        ToolReplyToMessage,
		Title:       "Reply to Telegram Message",
		Description: "Reply to a specific message in a chat",
		Run: func(ctx context.Context, c Messenger, in replyInput) (telegram.SentMessage, error) {
			opts := telegram.MessageOptions{ParseMode: in.ParseMode, DisableNotification: in.DisableNotification}
			return observe(ctx, o, ToolReplyToMessage, in.ChatID, func(ctx context.Context) (telegram.SentMessage, error) {
				return c.ReplyToMessage(ctx, in.ChatID, int(in.MessageID), in.Text, opts)
			})
		},
	}); err != nil {
		return err
	}

	if err := dispatch.Register(d, dispatch.Action[Messenger, editInput, telegram.EditedMessage]{
		Name:        ToolEditMessage,
		Title:       "Edit Telegram Message",
		Description: "Replace the text of a message sent by this account",
		Run: func(ctx context.Context, c Messenger, in editInput) (telegram.EditedMessage, error) {
			return observe(ctx, o, ToolEditMessage, in.ChatID, func(ctx context.Context) (telegram.EditedMessage, error) {
				return c.EditMessage(ctx, in.ChatID, int(in.MessageID), in.Text)
			})
		},
	}); err != nil {
		return err
	}

	if err := dispatch.Register(d, dispatch.Action[Messenger, messageRefInput, telegram.ActionResult]{
		Name:        ToolDeleteMessage,
		Title:       "Delete Telegram Message",
		Description: "Delete a message from a chat",
		Destructive: true,
		Run: func(ctx context.Context, c Messenger, in messageRefInput) (telegram.ActionResult, error) {
			return observe(ctx, o, ToolDeleteMessage, in.ChatID, func(ctx context.Context) (telegram.ActionResult, error) {
				return c.DeleteMessage(ctx, in.ChatID, int(in.MessageID))
			})
		},
	}); err != nil {
		return err
	}

	if err := dispatch.Register(d, dispatch.Action[Messenger, forwardInput, telegram.SentMessage]{
		Name:        ToolForwardMessage,
		Title:       "Forward Telegram Message",
		Description: "Forward a message from one chat to another",
		Run: func(ctx context.Context, c Messenger, in forwardInput) (telegram.SentMessage, error) {
			return observe(ctx, o, ToolForwardMessage, in.ToChatID, func(ctx context.Context) (telegram.SentMessage, error) {
				return c.ForwardMessage(ctx, in.ToChatID, in.FromChatID, int(in.MessageID))
			})
		},
	}); err != nil {
		return err
	}

	if err := dispatch.Register(d, dispatch.Action[Messenger, pinInput, telegram.ActionResult]{
		Name:        ToolPinMessage,
		Title:       "Pin Telegram Message",
		Description: "Pin a message in a chat",
		Run: func(ctx context.Context, c Messenger, in pinInput) (telegram.ActionResult, error) {
			return observe(ctx, o, ToolPinMessage, in.ChatID, func(ctx context.Context) (telegram.ActionResult, error) {
				return c.PinMessage(ctx, in.ChatID, int(in.MessageID), in.DisableNotification)
			})
		},
	}); err != nil {
		return err
	}

	return dispatch.Register(d, dispatch.Action[Messenger, reactionInput, telegram.ActionResult]{
		Name:        ToolAddReaction,
		Title:       "React to Telegram Message",
		Description: "Set or clear this account's emoji reaction on a message",
		Run: func(ctx context.Context, c Messenger, in reactionInput) (telegram.ActionResult, error) {
			return observe(ctx, o, ToolAddReaction, in.ChatID, func(ctx context.Context) (telegram.ActionResult, error) {
				return c.React(ctx, in.ChatID, int(in.MessageID), in.Emoji)
			})
		},
	})
}
