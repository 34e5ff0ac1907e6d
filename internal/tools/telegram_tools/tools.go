package telegram_tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/telegram-mcp/internal/dispatch"
	"github.com/teemow/telegram-mcp/internal/instrumentation"
	"github.com/teemow/telegram-mcp/internal/server"
	"github.com/teemow/telegram-mcp/internal/telegram"
	"github.com/teemow/telegram-mcp/internal/tools/common"
)

// Messenger is the part of the Telegram client the tools delegate to.
type Messenger interface {
	GetMe(ctx context.Context) (telegram.Profile, error)
	GetChat(ctx context.Context, chat string) (telegram.ChatInfo, error)
	ListChats(ctx context.Context, limit int) ([]telegram.ChatSummary, error)
	RecentMessages(ctx context.Context, chat string, limit int) ([]telegram.MessageInfo, error)
	SendMessage(ctx context.Context, chat, text string, opts telegram.MessageOptions) (telegram.SentMessage, error)
	ReplyToMessage(ctx context.Context, chat string, messageID int, text string, opts telegram.MessageOptions) (telegram.SentMessage, error)
	EditMessage(ctx context.Context, chat string, messageID int, text string) (telegram.EditedMessage, error)
	DeleteMessage(ctx context.Context, chat string, messageID int) (telegram.ActionResult, error)
	ForwardMessage(ctx context.Context, to, from string, messageID int) (telegram.SentMessage, error)
	PinMessage(ctx context.Context, chat string, messageID int, silent bool) (telegram.ActionResult, error)
	React(ctx context.Context, chat string, messageID int, emoji string) (telegram.ActionResult, error)
}

var _ Messenger = (*telegram.Client)(nil)

// Dispatcher is the action dispatcher over a Messenger.
type Dispatcher = dispatch.Dispatcher[Messenger]

// NewHandle adapts the server context to the dispatcher handle. The client
// is created on first use and shared by every call.
func NewHandle(sc *server.ServerContext) dispatch.Handle[Messenger] {
	return dispatch.HandleFunc[Messenger](func(ctx context.Context) (Messenger, error) {
		client, err := sc.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return client, nil
	})
}

// NewDispatcher registers the Telegram actions. Write actions are left out
// when readOnly is set. metrics may be nil.
func NewDispatcher(handle dispatch.Handle[Messenger], metrics *instrumentation.Metrics, logger *slog.Logger, readOnly bool) (*Dispatcher, error) {
	d := dispatch.New(handle, logger)
	o := observer{metrics: metrics}

	if err := registerChatActions(d, o); err != nil {
		return nil, fmt.Errorf("failed to register chat actions: %w", err)
	}
	if !readOnly {
		if err := registerMessageActions(d, o); err != nil {
			return nil, fmt.Errorf("failed to register message actions: %w", err)
		}
	}
	return d, nil
}

// RegisterTelegramTools exposes every action as an MCP tool and an MCP prompt.
func RegisterTelegramTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	d, err := NewDispatcher(NewHandle(sc), sc.Metrics(), sc.Logger(), readOnly)
	if err != nil {
		return err
	}

	for _, desc := range d.Descriptors() {
		name, title := desc.Name, desc.Title

		s.AddTool(desc.Tool(), common.InstrumentedToolHandler(name, operations[name], desc.ReadOnly, sc,
			func(ctx context.Context, request mcp.CallToolRequest) dispatch.Envelope {
				return d.Call(ctx, name, request.GetArguments())
			}))

		s.AddPrompt(desc.Prompt(), func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			return dispatch.PromptResult(title, d.Prompt(ctx, name, request.Params.Arguments)), nil
		})
	}
	return nil
}

// operations maps each tool to the Bot API method it calls.
var operations = map[string]string{
	ToolGetMe:             instrumentation.OperationGetMe,
	ToolGetChat:           instrumentation.OperationGetChat,
	ToolListChats:         instrumentation.OperationGetUpdates,
	ToolGetRecentMessages: instrumentation.OperationGetUpdates,
	ToolSendMessage:       instrumentation.OperationSendMessage,
	ToolReplyToMessage:    instrumentation.OperationSendMessage,
	ToolEditMessage:       instrumentation.OperationEditMessage,
	ToolDeleteMessage:     instrumentation.OperationDeleteMessage,
	ToolForwardMessage:    instrumentation.OperationForward,
	ToolPinMessage:        instrumentation.OperationPin,
	ToolAddReaction:       instrumentation.OperationReaction,
}

// observer wraps each Bot API call in a client span and records its
// duration, then normalizes the error.
type observer struct {
	metrics *instrumentation.Metrics
}

func observe[Out any](ctx context.Context, o observer, tool, chat string, call func(context.Context) (Out, error)) (Out, error) {
	op := operations[tool]
	ctx, span := instrumentation.StartTelegramSpan(ctx, op,
		instrumentation.NewSpanAttributeBuilder().WithTool(tool).WithChat(chat).Build()...)
	defer span.End()

	start := time.Now()
	out, err := call(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	o.metrics.RecordTelegramOperation(ctx, op, instrumentation.ClassifyChat(chat), status, time.Since(start))

	return out, normalize(err)
}

// normalize maps client errors onto failure kinds. Errors it does not
// recognize are returned unchanged and reported as internal errors.
func normalize(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, telegram.ErrInvalidChatRef):
		return &dispatch.Error{Kind: dispatch.KindBadInput, Message: err.Error(), Err: err}
	case errors.Is(err, telegram.ErrClosed), errors.Is(err, telegram.ErrNotLoggedIn), telegram.IsUnauthorized(err):
		return dispatch.Unavailable(err)
	default:
		return err
	}
}
