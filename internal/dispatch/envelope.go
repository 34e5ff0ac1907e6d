package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// Kind classifies a failed call.
type Kind string

const (
	KindBadInput          Kind = "bad_input"
	KindClientUnavailable Kind = "client_unavailable"
	KindInternal          Kind = "internal_error"
)

// CodeClientUnavailable is the JSON-RPC server error code reported when no
// ready client is available. It sits in the implementation-defined range.
const CodeClientUnavailable = -32001

// Code returns the JSON-RPC error code for the kind.
func (k Kind) Code() int {
	switch k {
	case KindBadInput:
		return mcp.INVALID_PARAMS
	case KindClientUnavailable:
		return CodeClientUnavailable
	default:
		return mcp.INTERNAL_ERROR
	}
}

// Error is a normalized failure. Actions may return an *Error to choose the
// reported kind themselves; it is passed through unchanged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap implements the errors.Unwrap interface.
func (e *Error) Unwrap() error {
	return e.Err
}

// BadInput returns a bad_input failure with a formatted message.
func BadInput(format string, args ...any) *Error {
	return &Error{Kind: KindBadInput, Message: fmt.Sprintf(format, args...)}
}

// Unavailable returns a client_unavailable failure wrapping err.
func Unavailable(err error) *Error {
	msg := "telegram client unavailable"
	if err != nil {
		msg += ": " + err.Error()
	}
	return &Error{Kind: KindClientUnavailable, Message: msg, Err: err}
}

// Internal returns an internal_error failure for the named action. The
// message carries the error text.
func Internal(action string, err error) *Error {
	msg := action + " failed"
	if err != nil {
		msg += ": " + err.Error()
	}
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// AsError reports whether err is or wraps a normalized *Error.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Envelope is the outcome of exactly one call: a payload on success or a
// Failure otherwise.
type Envelope struct {
	Action  string
	Payload any
	Failure *Error

	text string
}

// OK reports whether the call succeeded.
func (e Envelope) OK() bool {
	return e.Failure == nil
}

// Text returns the serialized envelope.
func (e Envelope) Text() string {
	if e.text != "" {
		return e.text
	}
	return render(e)
}

type failureBody struct {
	Error failureDetail `json:"error"`
}

type failureDetail struct {
	Kind    Kind   `json:"kind"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func render(e Envelope) string {
	if e.Failure != nil {
		data, _ := json.MarshalIndent(failureBody{Error: failureDetail{
			Kind:    e.Failure.Kind,
			Code:    e.Failure.Kind.Code(),
			Message: e.Failure.Message,
		}}, "", "  ")
		return string(data)
	}
	data, err := json.MarshalIndent(e.Payload, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

// succeed builds a success envelope, falling back to an internal failure when
// the payload cannot be serialized.
func succeed(action string, payload any) Envelope {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return failed(action, Internal(action, fmt.Errorf("failed to encode result: %w", err)))
	}
	return Envelope{Action: action, Payload: payload, text: string(data)}
}

func failed(action string, f *Error) Envelope {
	env := Envelope{Action: action, Failure: f}
	env.text = render(env)
	return env
}

// ToolResult converts an envelope into an MCP tool result. Failures are
// flagged with IsError and still carry the serialized envelope.
func ToolResult(env Envelope) *mcp.CallToolResult {
	if env.OK() {
		return mcp.NewToolResultText(env.Text())
	}
	return mcp.NewToolResultError(env.Text())
}

// PromptResult converts an envelope into an MCP prompt result whose only
// message is the serialized payload, or a short error line on failure.
func PromptResult(title string, env Envelope) *mcp.GetPromptResult {
	if !env.OK() {
		return mcp.NewGetPromptResult("Error", []mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent("Error: "+env.Failure.Message)),
		})
	}
	return mcp.NewGetPromptResult(title+" Result", []mcp.PromptMessage{
		mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(env.Text())),
	})
}
