package telegram

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Environment variables read by LoadConfig.
const (
	EnvBotToken    = "TELEGRAM_BOT_TOKEN"
	EnvAPIEndpoint = "TELEGRAM_API_ENDPOINT"
	EnvSessionPath = "TELEGRAM_MCP_SESSION"
	EnvHTTPTimeout = "TELEGRAM_HTTP_TIMEOUT"
)

// DefaultHTTPTimeout bounds every Bot API request.
const DefaultHTTPTimeout = 30 * time.Second

// Config holds the settings needed to build a Client.
type Config struct {
	// Token overrides the token stored in the session file.
	Token string

	// APIEndpoint is a format string with two %s verbs for the token and the
	// method name. Defaults to the public Bot API.
	APIEndpoint string

	// SessionPath is where login stores the session.
	SessionPath string

	// Timeout is the HTTP client timeout.
	Timeout time.Duration
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	cfg := Config{
		Token:       strings.TrimSpace(os.Getenv(EnvBotToken)),
		APIEndpoint: os.Getenv(EnvAPIEndpoint),
		SessionPath: os.Getenv(EnvSessionPath),
		Timeout:     DefaultHTTPTimeout,
	}

	if v := os.Getenv(EnvHTTPTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", EnvHTTPTimeout, v, err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("invalid %s %q: must be positive", EnvHTTPTimeout, v)
		}
		cfg.Timeout = d
	}

	if cfg.SessionPath == "" {
		path, err := DefaultSessionPath()
		if err != nil {
			return Config{}, err
		}
		cfg.SessionPath = path
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the endpoint format.
func (c Config) Validate() error {
	if c.APIEndpoint != "" && strings.Count(c.APIEndpoint, "%s") != 2 {
		return fmt.Errorf("invalid %s %q: must contain two %%s verbs for token and method", EnvAPIEndpoint, c.APIEndpoint)
	}
	return nil
}

// Endpoint returns the Bot API endpoint format string.
func (c Config) Endpoint() string {
	if c.APIEndpoint == "" {
		return tgbotapi.APIEndpoint
	}
	return c.APIEndpoint
}

// HTTPTimeout returns the configured timeout or the default.
func (c Config) HTTPTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultHTTPTimeout
	}
	return c.Timeout
}

// ResolveToken returns the explicit token or the one stored in the session
// file. It returns ErrNotLoggedIn when neither is available.
func (c Config) ResolveToken() (string, error) {
	if c.Token != "" {
		return c.Token, nil
	}
	if c.SessionPath == "" {
		return "", ErrNotLoggedIn
	}
	session, err := LoadSession(c.SessionPath)
	if err != nil {
		return "", err
	}
	return session.Token, nil
}

// DefaultSessionPath returns the session file location under the user
// configuration directory.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, "telegram-mcp", "session.yaml"), nil
}

// HasSession reports whether a credential is available without contacting
// Telegram.
func (c Config) HasSession() bool {
	_, err := c.ResolveToken()
	return err == nil
}
