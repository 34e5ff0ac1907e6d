package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ToolInvocation captures all information about a tool invocation for audit logging.
//
// # Privacy Considerations
//
// The Chat field identifies a person or group. General logs carry only
// ChatType(); the full reference is reserved for audit streams.
type ToolInvocation struct {
	Tool string

	// Target of the call
	Chat      string // chat reference as passed by the caller
	Operation string // Bot API method

	// Execution details
	StartTime   time.Time
	Duration    time.Duration
	Success     bool
	FailureKind string // bad_input, client_unavailable, internal_error
	Error       string

	// Tracing context
	TraceID string
	SpanID  string
}

// ChatType returns the cardinality-safe chat label.
func (ti *ToolInvocation) ChatType() string {
	return ClassifyChat(ti.Chat)
}

// Status returns "success" or "error" based on the Success field.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes without the chat reference.
// For full audit logging, use LogAuditAttrs.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.String("chat_type", ti.ChatType()),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	return ti.appendCommon(attrs, false)
}

// LogAuditAttrs returns slog attributes including the chat reference.
//
// # Security Warning
//
// Ensure audit logs are stored securely and not exposed to general
// monitoring dashboards.
func (ti *ToolInvocation) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.String("chat", ti.Chat),
		slog.String("chat_type", ti.ChatType()),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	return ti.appendCommon(attrs, true)
}

func (ti *ToolInvocation) appendCommon(attrs []slog.Attr, withSpan bool) []slog.Attr {
	if ti.Operation != "" {
		attrs = append(attrs, slog.String("operation", ti.Operation))
	}
	if ti.FailureKind != "" {
		attrs = append(attrs, slog.String("kind", ti.FailureKind))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if withSpan && ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	return attrs
}

// NewToolInvocation creates a new ToolInvocation with timing started.
// Call Complete() when the tool operation finishes.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithChat sets the chat the tool addressed.
func (ti *ToolInvocation) WithChat(chat string) *ToolInvocation {
	ti.Chat = chat
	return ti
}

// WithOperation sets the Bot API method.
func (ti *ToolInvocation) WithOperation(operation string) *ToolInvocation {
	ti.Operation = operation
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ti.TraceID = span.SpanContext().TraceID().String()
		ti.SpanID = span.SpanContext().SpanID().String()
	}
	return ti
}

// Complete marks the invocation as completed and calculates duration.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// CompleteWithFailure marks the invocation as failed with a failure kind.
func (ti *ToolInvocation) CompleteWithFailure(kind, message string) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = false
	ti.FailureKind = kind
	ti.Error = message
	return ti
}

// CompleteSuccess marks the invocation as successful.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(true, nil)
}

// AuditLogger provides structured audit logging for tool invocations.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates a new AuditLogger with the given slog.Logger.
// Chat references are left out by default.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// SetIncludePII sets whether to include chat references in audit logs.
func (al *AuditLogger) SetIncludePII(include bool) {
	al.includePII = include
}

// SetEnabled sets whether audit logging is enabled.
func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

// LogToolInvocation logs a tool invocation. Successful calls are logged at
// info, bad input at info, other failures at warn.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	var attrs []slog.Attr
	if al.includePII {
		attrs = ti.LogAuditAttrs()
	} else {
		attrs = ti.LogAttrs()
	}

	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	switch {
	case ti.Success:
		al.logger.Info("tool_executed", args...)
	case ti.FailureKind == "bad_input":
		al.logger.Info("tool_rejected", args...)
	default:
		al.logger.Warn("tool_failed", args...)
	}
}
