package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/telegram-mcp/internal/dispatch"
	"github.com/teemow/telegram-mcp/internal/instrumentation"
	"github.com/teemow/telegram-mcp/internal/server"
)

// EnvelopeHandler serves one tool call and returns its outcome.
type EnvelopeHandler func(ctx context.Context, request mcp.CallToolRequest) dispatch.Envelope

// InstrumentedToolHandler wraps a tool handler with a span, metrics and
// audit logging, and converts the envelope into the MCP result. Failures
// are returned as error results, never as Go errors, so the protocol layer
// always sees exactly one text payload.
//
// Usage:
//
//	s.AddTool(tool, common.InstrumentedToolHandler("telegram_get_me", "getMe", true, sc, handler))
func InstrumentedToolHandler(
	toolName string,
	operation string,
	readOnly bool,
	sc *server.ServerContext,
	handler EnvelopeHandler,
) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()

		chat := ChatFromArgs(request.GetArguments())

		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			instrumentation.NewSpanAttributeBuilder().
				WithMethod(operation).
				WithChat(chat).
				WithReadOnly(readOnly).
				Build()...)
		defer span.End()

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithChat(chat).
			WithOperation(operation).
			WithSpanContext(ctx)

		env := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		if env.OK() {
			invocation.CompleteSuccess()
			instrumentation.SetSpanSuccess(span)
		} else {
			status = instrumentation.StatusError
			kind := string(env.Failure.Kind)
			invocation.CompleteWithFailure(kind, env.Failure.Message)
			instrumentation.SetSpanFailure(span, kind, env.Failure.Message)
			metrics.RecordToolFailure(ctx, toolName, kind)
		}

		metrics.RecordToolInvocationWithChat(ctx, toolName, status, chat, duration)
		auditLogger.LogToolInvocation(invocation)

		return dispatch.ToolResult(env), nil
	}
}
