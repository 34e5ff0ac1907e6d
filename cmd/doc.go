// Package cmd implements the command-line interface for telegram-mcp.
//
// This package provides the following commands:
//   - (root): serve the MCP server, or with --login store a session and exit
//   - serve: Start the MCP server over stdio or streamable HTTP
//   - login: Verify a bot token and store it in the session file
//   - logout: Remove the stored session file
//   - install: Register the server with an MCP host application
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The process exits with status 1 when a command fails and 0 otherwise,
// including after a graceful interrupt of the server.
package cmd
