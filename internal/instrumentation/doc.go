// Package instrumentation provides OpenTelemetry instrumentation for the
// telegram-mcp server.
//
// This package enables observability through:
//   - OpenTelemetry metrics for HTTP requests, Telegram Bot API calls, and MCP tool calls
//   - Distributed tracing for tool invocations and Bot API calls
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//   - telegram_active_clients: Gauge of live Telegram client handles
//
// Telegram Bot API Metrics:
//   - telegram_api_operations_total: Counter of Bot API calls by operation, chat type, status
//   - telegram_api_operation_duration_seconds: Histogram of Bot API call durations
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//   - mcp_tool_failures_total: Counter of failed tool calls by tool and failure kind
//
// Chat identifiers never appear as labels unless METRICS_DETAILED_LABELS is
// set; ClassifyChat reduces them to a chat type.
//
// # Tracing
//
// Spans are created for MCP tool invocations (tool.<name>) and Bot API calls
// (telegram.<method>).
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: telegram-mcp)
//   - METRICS_DETAILED_LABELS: Add the addressed chat to tool metrics
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII: Audit trail of tool calls
//
// Malformed values make LoadConfig fail instead of falling back to defaults.
//
// The stdout exporters write to standard error because standard output
// carries the stdio transport.
//
// # Example Usage
//
//	config, err := instrumentation.LoadConfig(os.Getenv)
//	if err != nil {
//		return err
//	}
//	provider, err := instrumentation.NewProvider(ctx, config)
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordTelegramOperation(ctx, instrumentation.OperationSendMessage,
//		instrumentation.ClassifyChat("@channel"), instrumentation.StatusSuccess, time.Since(start))
//	recorder.RecordToolInvocation(ctx, "telegram_send_message", "success", time.Since(start))
package instrumentation
