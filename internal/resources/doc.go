// Package resources provides MCP resources for telegram-mcp.
//
// telegram://me returns the profile of the logged-in account as JSON. It
// uses the same shared client as the tools, so reading it creates the
// client if no tool has run yet.
package resources
