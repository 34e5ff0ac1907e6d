package telegram

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Session is the persisted login state.
type Session struct {
	Token     string    `yaml:"token"`
	BotID     int64     `yaml:"bot_id"`
	Username  string    `yaml:"username,omitempty"`
	CreatedAt time.Time `yaml:"created_at"`
}

// LoadSession reads a session file. A missing file yields ErrNotLoggedIn.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("failed to read session file %s: %w", path, err)
	}

	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session file %s: %w", path, err)
	}
	s.Token = strings.TrimSpace(s.Token)
	if s.Token == "" {
		return nil, ErrNotLoggedIn
	}
	return &s, nil
}

// SaveSession writes the session file with owner-only permissions.
func SaveSession(path string, s *Session) error {
	if s == nil || s.Token == "" {
		return errors.New("session has no token")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file %s: %w", path, err)
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(path, 0o600)
}

// DeleteSession removes the session file. Removing a missing file is not an
// error.
func DeleteSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session file %s: %w", path, err)
	}
	return nil
}
