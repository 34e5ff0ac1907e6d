package installer

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Method is how a host stores its MCP server list.
type Method string

const (
	// MethodMCPServers merges into the "mcpServers" object of a JSON file.
	MethodMCPServers Method = "mcp-servers"
	// MethodVSCode merges into the "servers" object of VS Code's mcp.json.
	MethodVSCode Method = "vscode"
	// MethodCodexTOML merges an [mcp_servers.<name>] table into config.toml.
	MethodCodexTOML Method = "codex-toml"
	// MethodStdout prints an mcpServers snippet instead of writing a file.
	MethodStdout Method = "stdout"
)

// Client describes one host application.
type Client struct {
	Key    string
	Name   string
	Method Method

	// envKey names the path override variable, defaulting to Key.
	envKey string
	// path returns the default config location given the home and user
	// config directories.
	path func(home, configDir string) string
}

// OverrideEnv is the environment variable that replaces the default path.
func (c Client) OverrideEnv() string {
	key := c.envKey
	if key == "" {
		key = c.Key
	}
	return "TELEGRAM_MCP_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_")) + "_CONFIG"
}

var clients = []Client{
	{
		Key: "cursor", Name: "Cursor", Method: MethodMCPServers,
		path: func(home, _ string) string { return filepath.Join(home, ".cursor", "mcp.json") },
	},
	{
		Key: "claude-desktop", Name: "Claude Desktop", Method: MethodMCPServers,
		path: func(_, cfg string) string { return filepath.Join(cfg, "Claude", "claude_desktop_config.json") },
	},
	{
		Key: "claude-code", Name: "Claude Code", Method: MethodMCPServers,
		path: func(home, _ string) string { return filepath.Join(home, ".claude.json") },
	},
	{
		Key: "gemini-cli", Name: "Gemini CLI", Method: MethodMCPServers,
		path: func(home, _ string) string { return filepath.Join(home, ".gemini", "settings.json") },
	},
	{
		Key: "windsurf", Name: "Windsurf", Method: MethodMCPServers,
		path: func(home, _ string) string { return filepath.Join(home, ".codeium", "windsurf", "mcp_config.json") },
	},
	{
		Key: "mcp-json", Name: "MCP JSON", Method: MethodStdout,
	},
	{
		Key: "vscode", Name: "VS Code", Method: MethodVSCode,
		path: func(_, cfg string) string { return filepath.Join(cfg, "Code", "User", "mcp.json") },
	},
	{
		Key: "codex", Name: "Codex", Method: MethodCodexTOML,
		path: func(home, _ string) string { return filepath.Join(home, ".codex", "config.toml") },
	},
	{
		Key: "codex-cli", Name: "Codex CLI", Method: MethodCodexTOML, envKey: "codex",
		path: func(home, _ string) string { return filepath.Join(home, ".codex", "config.toml") },
	},
}

// Clients returns the supported hosts sorted by key.
func Clients() []Client {
	out := make([]Client, len(clients))
	copy(out, clients)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ClientKeys returns the sorted client keys.
func ClientKeys() []string {
	keys := make([]string, 0, len(clients))
	for _, c := range Clients() {
		keys = append(keys, c.Key)
	}
	return keys
}

// LookupClient resolves a client key.
func LookupClient(key string) (Client, error) {
	for _, c := range clients {
		if c.Key == key {
			return c, nil
		}
	}
	return Client{}, fmt.Errorf("invalid client key %q, choices: %s", key, strings.Join(ClientKeys(), ", "))
}
