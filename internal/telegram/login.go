package telegram

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Login verifies token against the Bot API and stores it in the session file
// named by cfg. Nothing is written when the token is rejected.
func Login(ctx context.Context, cfg Config, token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("token cannot be empty")
	}
	if cfg.SessionPath == "" {
		path, err := DefaultSessionPath()
		if err != nil {
			return nil, err
		}
		cfg.SessionPath = path
	}

	verify := cfg
	verify.Token = token
	client, err := NewClient(ctx, verify)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	self := client.self
	session := &Session{
		Token:     token,
		BotID:     self.ID,
		Username:  self.UserName,
		CreatedAt: time.Now().UTC(),
	}
	if err := SaveSession(cfg.SessionPath, session); err != nil {
		return nil, err
	}
	return session, nil
}
