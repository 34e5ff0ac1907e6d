package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/teemow/telegram-mcp/internal/instrumentation"
	"github.com/teemow/telegram-mcp/internal/logging"
)

type entry[C any] struct {
	desc   *Descriptor
	bind   func(args map[string]any) (any, *Error)
	invoke func(ctx context.Context, client C, in any) (any, error)
}

// Dispatcher routes calls by action name. Actions are registered once at
// startup; afterwards the dispatcher is safe for concurrent use.
type Dispatcher[C any] struct {
	handle  Handle[C]
	logger  *slog.Logger
	entries map[string]*entry[C]
	order   []string
}

// New creates a dispatcher that obtains its client from handle.
// If logger is nil, slog.Default() is used.
func New[C any](handle Handle[C], logger *slog.Logger) *Dispatcher[C] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher[C]{
		handle:  handle,
		logger:  logger,
		entries: make(map[string]*entry[C]),
	}
}

// Lookup returns the descriptor of a registered action.
func (d *Dispatcher[C]) Lookup(name string) (*Descriptor, bool) {
	e, ok := d.entries[name]
	if !ok {
		return nil, false
	}
	return e.desc, true
}

// Descriptors returns all registered actions in registration order.
func (d *Dispatcher[C]) Descriptors() []*Descriptor {
	out := make([]*Descriptor, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.entries[name].desc)
	}
	return out
}

// Call runs the named action with args and returns exactly one envelope.
// The readiness gate runs first, so an unavailable client is reported
// regardless of the arguments. Nothing is retried.
func (d *Dispatcher[C]) Call(ctx context.Context, name string, args map[string]any) Envelope {
	e, ok := d.entries[name]
	if !ok {
		return d.fail(ctx, name, BadInput("unknown action: %s", name))
	}
	if args == nil {
		args = map[string]any{}
	}

	client, err := d.handle.Acquire(ctx)
	if err != nil {
		if de, ok := AsError(err); ok {
			return d.fail(ctx, name, de)
		}
		return d.fail(ctx, name, Unavailable(err))
	}

	in, berr := e.bind(args)
	if berr != nil {
		return d.fail(ctx, name, berr)
	}

	return d.run(ctx, e, client, in)
}

// Prompt serves the prompt presentation of an action. Missing required
// arguments are reported by name before the call is attempted; otherwise it
// follows Call.
func (d *Dispatcher[C]) Prompt(ctx context.Context, name string, args map[string]string) Envelope {
	e, ok := d.entries[name]
	if !ok {
		return d.fail(ctx, name, BadInput("unknown prompt: %s", name))
	}

	converted := make(map[string]any, len(args))
	for k, v := range args {
		converted[k] = v
	}
	if missing := e.desc.Missing(converted); len(missing) > 0 {
		return d.fail(ctx, name, BadInput("missing required arguments: %s", strings.Join(missing, ", ")))
	}
	return d.Call(ctx, name, converted)
}

func (d *Dispatcher[C]) run(ctx context.Context, e *entry[C], client C, in any) (env Envelope) {
	name := e.desc.Name
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("action panicked",
				logging.Tool(name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			env = d.fail(ctx, name, Internal(name, fmt.Errorf("panic: %v", r)))
		}
	}()

	out, err := e.invoke(ctx, client, in)
	if err != nil {
		if de, ok := AsError(err); ok {
			return d.fail(ctx, name, de)
		}
		return d.fail(ctx, name, Internal(name, err))
	}
	return succeed(name, out)
}

func (d *Dispatcher[C]) fail(ctx context.Context, name string, f *Error) Envelope {
	attrs := []any{
		logging.Tool(name),
		slog.String("kind", string(f.Kind)),
		slog.String("message", f.Message),
	}
	if traceID := instrumentation.GetTraceID(ctx); traceID != "" {
		attrs = append(attrs, slog.String("trace_id", traceID))
	}

	switch f.Kind {
	case KindInternal:
		if f.Err != nil {
			attrs = append(attrs, logging.Err(f.Err), slog.String("error_type", fmt.Sprintf("%T", f.Err)))
		}
		d.logger.Error("action failed", attrs...)
	case KindClientUnavailable:
		d.logger.Warn("action rejected", attrs...)
	default:
		d.logger.Debug("action rejected", attrs...)
	}
	return failed(name, f)
}
