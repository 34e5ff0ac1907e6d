package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrChatType  = "chat_type"
	attrKind      = "kind"
	attrTool      = "tool"
	attrChat      = "chat"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	activeClients       metric.Int64UpDownCounter

	// Telegram Bot API metrics
	telegramOperationsTotal   metric.Int64Counter
	telegramOperationDuration metric.Float64Histogram

	// MCP tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram
	toolFailuresTotal    metric.Int64Counter

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.activeClients, err = meter.Int64UpDownCounter(
		"telegram_active_clients",
		metric.WithDescription("Number of live Telegram client handles"),
		metric.WithUnit("{client}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram_active_clients gauge: %w", err)
	}

	m.telegramOperationsTotal, err = meter.Int64Counter(
		"telegram_api_operations_total",
		metric.WithDescription("Total number of Telegram Bot API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram_api_operations_total counter: %w", err)
	}

	m.telegramOperationDuration, err = meter.Float64Histogram(
		"telegram_api_operation_duration_seconds",
		metric.WithDescription("Telegram Bot API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram_api_operation_duration_seconds histogram: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	m.toolFailuresTotal, err = meter.Int64Counter(
		"mcp_tool_failures_total",
		metric.WithDescription("Total number of failed MCP tool invocations by failure kind"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_failures_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordTelegramOperation records a Bot API operation with operation, status,
// and duration.
//
// Parameters:
//   - operation: Bot API method (getMe, sendMessage, getUpdates, etc.)
//   - chatType: ChatTypeUser, ChatTypeChannel, or ChatTypeNone
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordTelegramOperation(ctx context.Context, operation, chatType, status string, duration time.Duration) {
	if m == nil || m.telegramOperationsTotal == nil || m.telegramOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrChatType, chatType),
		attribute.String(attrStatus, status),
	}

	m.telegramOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.telegramOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
//
// Parameters:
//   - toolName: Name of the MCP tool (e.g., "telegram_send_message")
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the tool execution
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	m.RecordToolInvocationWithChat(ctx, toolName, status, "", duration)
}

// RecordToolInvocationWithChat records an MCP tool invocation with the chat it
// addressed. The chat label is only added when detailedLabels is enabled.
func (m *Metrics) RecordToolInvocationWithChat(ctx context.Context, toolName, status, chat string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	// Only add high-cardinality labels if explicitly enabled
	if m.detailedLabels && chat != "" {
		attrs = append(attrs, attribute.String(attrChat, chat))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordToolFailure counts a failed tool call by its failure kind
// (bad_input, client_unavailable, internal_error).
func (m *Metrics) RecordToolFailure(ctx context.Context, toolName, kind string) {
	if m == nil || m.toolFailuresTotal == nil {
		return // Instrumentation not initialized
	}

	m.toolFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrTool, toolName),
		attribute.String(attrKind, kind),
	))
}

// IncrementActiveClients records that a Telegram client handle was created.
func (m *Metrics) IncrementActiveClients(ctx context.Context) {
	if m == nil || m.activeClients == nil {
		return // Instrumentation not initialized
	}

	m.activeClients.Add(ctx, 1)
}

// DecrementActiveClients records that a Telegram client handle was released.
func (m *Metrics) DecrementActiveClients(ctx context.Context) {
	if m == nil || m.activeClients == nil {
		return // Instrumentation not initialized
	}

	m.activeClients.Add(ctx, -1)
}
