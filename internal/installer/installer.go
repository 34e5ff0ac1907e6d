package installer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/teemow/telegram-mcp/internal/logging"
	"github.com/teemow/telegram-mcp/internal/telegram"
)

// ServerName is the key of the server block in host configs.
const ServerName = "telegram-mcp"

// envKeys are copied from the .env file into the server block.
var envKeys = []string{
	telegram.EnvBotToken,
	telegram.EnvAPIEndpoint,
	telegram.EnvSessionPath,
}

// ServerBlock is the host-side description of how to launch the server.
type ServerBlock struct {
	Command string            `json:"command" toml:"command"`
	Args    []string          `json:"args" toml:"args"`
	Env     map[string]string `json:"env,omitempty" toml:"env,inline,omitempty"`
}

// Result reports where a block was written. Path is empty for MethodStdout.
type Result struct {
	Client Client
	Path   string
}

// Installer writes server blocks into host configuration files.
type Installer struct {
	// Executable is the command hosts run. Defaults to this binary.
	Executable string
	// EnvFile is read for credentials to embed. A missing file is skipped.
	EnvFile string
	// Stdout receives the snippet for MethodStdout.
	Stdout io.Writer
	// Getenv resolves path overrides. Defaults to os.Getenv.
	Getenv func(string) string
	// HomeDir and ConfigDir override the user directories.
	HomeDir   string
	ConfigDir string

	logger logging.Logger
}

// New returns an Installer for the running executable that reads ".env"
// from the working directory.
func New(logger logging.Logger) *Installer {
	if logger == nil {
		logger = logging.NewSlogAdapter(nil)
	}
	return &Installer{
		EnvFile: ".env",
		Stdout:  os.Stdout,
		Getenv:  os.Getenv,
		logger:  logger,
	}
}

// ServerBlock builds the block for this installation.
func (i *Installer) ServerBlock() (ServerBlock, error) {
	command := i.Executable
	if command == "" {
		exe, err := os.Executable()
		if err != nil {
			return ServerBlock{}, fmt.Errorf("failed to locate executable: %w", err)
		}
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		command = exe
	}

	env, err := i.readEnv()
	if err != nil {
		return ServerBlock{}, err
	}
	return ServerBlock{Command: command, Args: []string{"serve"}, Env: env}, nil
}

func (i *Installer) readEnv() (map[string]string, error) {
	if i.EnvFile == "" {
		return nil, nil
	}
	values, err := godotenv.Read(i.EnvFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", i.EnvFile, err)
	}

	env := make(map[string]string)
	for _, key := range envKeys {
		if v := values[key]; v != "" {
			env[key] = v
		}
	}
	if len(env) == 0 {
		return nil, nil
	}
	return env, nil
}

// ConfigPath returns the config file for c, honoring the override variable.
func (i *Installer) ConfigPath(c Client) (string, error) {
	if c.path == nil {
		return "", fmt.Errorf("client %s has no config file", c.Key)
	}
	getenv := i.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if p := getenv(c.OverrideEnv()); p != "" {
		return p, nil
	}

	home := i.HomeDir
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to locate home directory: %w", err)
		}
		home = h
	}
	configDir := i.ConfigDir
	if configDir == "" {
		d, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to locate user config directory: %w", err)
		}
		configDir = d
	}
	return c.path(home, configDir), nil
}

// Install merges the server block into the config of the client named by key.
func (i *Installer) Install(key string) (Result, error) {
	client, err := LookupClient(key)
	if err != nil {
		return Result{}, err
	}

	block, err := i.ServerBlock()
	if err != nil {
		return Result{}, err
	}

	if client.Method == MethodStdout {
		data, err := marshalJSON(map[string]any{"mcpServers": map[string]any{ServerName: block}})
		if err != nil {
			return Result{}, err
		}
		out := i.Stdout
		if out == nil {
			out = os.Stdout
		}
		if _, err := out.Write(data); err != nil {
			return Result{}, fmt.Errorf("failed to write config: %w", err)
		}
		return Result{Client: client}, nil
	}

	path, err := i.ConfigPath(client)
	if err != nil {
		return Result{}, err
	}

	switch client.Method {
	case MethodMCPServers:
		err = i.mergeJSON(path, "mcpServers", block, false)
	case MethodVSCode:
		err = i.mergeJSON(path, "servers", block, true)
	case MethodCodexTOML:
		err = i.mergeCodex(path, block)
	default:
		err = fmt.Errorf("unsupported install method %q", client.Method)
	}
	if err != nil {
		return Result{}, err
	}

	i.logger.Info("Installed MCP server config",
		"client", client.Key,
		"path", path,
		"env_keys", len(block.Env))
	return Result{Client: client, Path: path}, nil
}

// writeConfig writes data with owner-only permissions since the block may
// carry a bot token.
func writeConfig(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readConfig(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
