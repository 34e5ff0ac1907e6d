package telegram

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// usernamePattern matches public Telegram usernames without the leading @.
var usernamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{3,31}$`)

// ChatRef addresses a chat either by numeric ID or by public username.
type ChatRef struct {
	ID       int64
	Username string // includes the leading @
}

// ParseChatRef parses "123", "-1001234567890" or "@username".
func ParseChatRef(s string) (ChatRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ChatRef{}, fmt.Errorf("%w: empty", ErrInvalidChatRef)
	}

	if strings.HasPrefix(s, "@") {
		if !usernamePattern.MatchString(s[1:]) {
			return ChatRef{}, fmt.Errorf("%w: %q is not a valid username", ErrInvalidChatRef, s)
		}
		return ChatRef{Username: s}, nil
	}

	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id == 0 {
		return ChatRef{}, fmt.Errorf("%w: %q must be a numeric ID or @username", ErrInvalidChatRef, s)
	}
	return ChatRef{ID: id}, nil
}

// String returns the reference as accepted by ParseChatRef.
func (r ChatRef) String() string {
	if r.Username != "" {
		return r.Username
	}
	return strconv.FormatInt(r.ID, 10)
}

// Matches reports whether the chat with the given id and username is the
// referenced chat.
func (r ChatRef) Matches(id int64, username string) bool {
	if r.Username != "" {
		return strings.EqualFold(strings.TrimPrefix(r.Username, "@"), username)
	}
	return r.ID == id
}
