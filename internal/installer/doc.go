// Package installer registers telegram-mcp with MCP host applications.
//
// A host is identified by a client key (cursor, claude-desktop, vscode,
// codex, ...). Install merges a server block into the host's configuration
// file and leaves every other entry in that file untouched. JSON hosts
// keep servers under "mcpServers" (VS Code uses "servers"); Codex keeps
// them as [mcp_servers.<name>] tables in config.toml.
//
// The default path of each host can be overridden with
// TELEGRAM_MCP_<CLIENT>_CONFIG, for example TELEGRAM_MCP_CODEX_CONFIG.
package installer
