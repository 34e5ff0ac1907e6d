package instrumentation

import "strings"

// Cardinality management helpers for metrics.
// These functions reduce high-cardinality label values to prevent metrics explosion.
//
// # Warning
//
// High cardinality in metrics can cause:
// - Increased memory usage in Prometheus/metrics backends
// - Slower query performance
// - Higher storage costs
//
// Always use these helpers when recording metrics with chat identifiers.

// Chat type label values.
const (
	ChatTypePrivate  = "private"
	ChatTypeGroup    = "group"
	ChatTypeChannel  = "channel"
	ChatTypeUsername = "username"
	ChatTypeNone     = "none"
	ChatTypeUnknown  = "unknown"
)

// ClassifyChat reduces a chat reference to a chat type label.
// Bot API IDs encode the chat kind: positive IDs are users, "-100" prefixed IDs
// are supergroups and channels, other negative IDs are basic groups.
//
// Example:
//
//	ClassifyChat("123")            // "private"
//	ClassifyChat("-42")            // "group"
//	ClassifyChat("-1001234567890") // "channel"
//	ClassifyChat("@durov")         // "username"
//	ClassifyChat("")               // "none"
func ClassifyChat(chat string) string {
	chat = strings.TrimSpace(chat)
	switch {
	case chat == "":
		return ChatTypeNone
	case strings.HasPrefix(chat, "@"):
		return ChatTypeUsername
	case strings.HasPrefix(chat, "-100") && len(chat) > 4:
		return ChatTypeChannel
	case strings.HasPrefix(chat, "-") && len(chat) > 1:
		return ChatTypeGroup
	case chat[0] >= '1' && chat[0] <= '9':
		return ChatTypePrivate
	default:
		return ChatTypeUnknown
	}
}

// Bot API method names used as operation labels.
const (
	OperationGetMe         = "getMe"
	OperationGetChat       = "getChat"
	OperationGetUpdates    = "getUpdates"
	OperationSendMessage   = "sendMessage"
	OperationEditMessage   = "editMessageText"
	OperationDeleteMessage = "deleteMessage"
	OperationForward       = "forwardMessage"
	OperationPin           = "pinChatMessage"
	OperationReaction      = "setMessageReaction"
)
