package common

import (
	"strconv"
	"strings"
)

// chatArgs are the argument names that address a chat, in priority order.
var chatArgs = []string{"chat_id", "to_chat_id", "from_chat_id"}

// ChatFromArgs extracts the chat a tool call addresses, for span and audit
// attributes. Numeric IDs decoded from JSON arrive as float64 and are
// formatted back to their integer form. It returns "" when no chat is named.
func ChatFromArgs(args map[string]any) string {
	for _, name := range chatArgs {
		switch v := args[name].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatInt(int64(v), 10)
		case int64:
			return strconv.FormatInt(v, 10)
		case int:
			return strconv.Itoa(v)
		}
	}
	return ""
}
