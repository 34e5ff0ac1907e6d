// Package server provides the MCP server context and the HTTP surfaces of
// telegram-mcp.
//
// # Key Components
//
// ServerContext owns the single Telegram client. The client is built lazily
// by a ClientFactory on the first tool call, reused by every handler, and
// closed on Shutdown. Acquire is the readiness gate used by the action
// dispatcher: it fails when the client cannot be built or was closed.
//
// HTTPServer mounts the streamable HTTP transport on /mcp behind an optional
// Bearer token (MCP_AUTH_TOKEN) and serves /healthz, /readyz and
// /healthz/detailed.
//
// MetricsServer exposes /metrics for Prometheus on a separate port.
package server
