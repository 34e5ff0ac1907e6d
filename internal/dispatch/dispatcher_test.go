package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	calls   int
	lastIn  replyInput
	result  sentMessage
	err     error
	panicOn string
}

type replyInput struct {
	ChatID    string `json:"chat_id" jsonschema:"required,minLength=1,description=Target chat ID or username"`
	MessageID int64  `json:"message_id" jsonschema:"required,minimum=1,description=The ID of the message to reply to"`
	Text      string `json:"text" jsonschema:"required,minLength=1,description=Reply text"`
}

type sentMessage struct {
	MessageID string `json:"message_id"`
	Date      string `json:"date"`
}

type listInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"minimum=1,maximum=100"`
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readyHandle(c *stubClient) Handle[*stubClient] {
	return HandleFunc[*stubClient](func(context.Context) (*stubClient, error) {
		return c, nil
	})
}

func newTestDispatcher(t *testing.T, h Handle[*stubClient]) *Dispatcher[*stubClient] {
	t.Helper()
	d := New(h, testLogger())
	require.NoError(t, Register(d, Action[*stubClient, replyInput, sentMessage]{
		Name:        "telegram_reply_to_message",
		Title:       "Reply",
		Description: "Replies to a specific message.",
		Run: func(ctx context.Context, c *stubClient, in replyInput) (sentMessage, error) {
			c.calls++
			c.lastIn = in
			if c.panicOn != "" {
				panic(c.panicOn)
			}
			if c.err != nil {
				return sentMessage{}, c.err
			}
			return c.result, nil
		},
	}))
	require.NoError(t, Register(d, Action[*stubClient, listInput, []string]{
		Name:     "telegram_list_chats",
		ReadOnly: true,
		Run: func(ctx context.Context, c *stubClient, in listInput) ([]string, error) {
			c.calls++
			return []string{"a", "b"}, nil
		},
	}))
	return d
}

func decodePayload(t *testing.T, env Envelope) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(env.Text()), &out))
	return out
}

func TestCall_ReplySuccess(t *testing.T) {
	client := &stubClient{result: sentMessage{MessageID: "999", Date: "2024-01-01T00:00:00Z"}}
	d := newTestDispatcher(t, readyHandle(client))

	env := d.Call(context.Background(), "telegram_reply_to_message", map[string]any{
		"chat_id":    "123",
		"message_id": "45",
		"text":       "hi",
	})

	require.True(t, env.OK(), env.Text())
	assert.Equal(t, map[string]any{"message_id": "999", "date": "2024-01-01T00:00:00Z"}, decodePayload(t, env))
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, replyInput{ChatID: "123", MessageID: 45, Text: "hi"}, client.lastIn)
}

func TestCall_CoercesArguments(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want replyInput
	}{
		{
			name: "numeric chat id and message id",
			args: map[string]any{"chat_id": float64(123), "message_id": float64(45), "text": "hi"},
			want: replyInput{ChatID: "123", MessageID: 45, Text: "hi"},
		},
		{
			name: "decimal strings from the prompt path",
			args: map[string]any{"chat_id": "-1001234567890", "message_id": "45", "text": "hi"},
			want: replyInput{ChatID: "-1001234567890", MessageID: 45, Text: "hi"},
		},
		{
			name: "username chat ref",
			args: map[string]any{"chat_id": "@durov", "message_id": 7, "text": "yo"},
			want: replyInput{ChatID: "@durov", MessageID: 7, Text: "yo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubClient{}
			d := newTestDispatcher(t, readyHandle(client))

			env := d.Call(context.Background(), "telegram_reply_to_message", tt.args)

			require.True(t, env.OK(), env.Text())
			assert.Equal(t, tt.want, client.lastIn)
		})
	}
}

func TestCall_BadInput(t *testing.T) {
	tests := []struct {
		name         string
		action       string
		args         map[string]any
		wantContains []string
	}{
		{
			name:         "missing fields are named",
			action:       "telegram_reply_to_message",
			args:         map[string]any{"chat_id": "123"},
			wantContains: []string{"message_id", "text"},
		},
		{
			name:         "nil arguments",
			action:       "telegram_reply_to_message",
			args:         nil,
			wantContains: []string{"chat_id", "message_id", "text"},
		},
		{
			name:         "uncoercible type",
			action:       "telegram_reply_to_message",
			args:         map[string]any{"chat_id": "123", "message_id": "abc", "text": "hi"},
			wantContains: []string{"message_id"},
		},
		{
			name:         "empty text",
			action:       "telegram_reply_to_message",
			args:         map[string]any{"chat_id": "123", "message_id": 45, "text": ""},
			wantContains: []string{"text"},
		},
		{
			name:         "message id below minimum",
			action:       "telegram_reply_to_message",
			args:         map[string]any{"chat_id": "123", "message_id": -3, "text": "hi"},
			wantContains: []string{"message_id"},
		},
		{
			name:         "fractional message id",
			action:       "telegram_reply_to_message",
			args:         map[string]any{"chat_id": "123", "message_id": 45.7, "text": "hi"},
			wantContains: []string{"message_id"},
		},
		{
			name:         "boolean message id",
			action:       "telegram_reply_to_message",
			args:         map[string]any{"chat_id": "123", "message_id": true, "text": "hi"},
			wantContains: []string{"message_id"},
		},
		{
			name:         "boolean chat id",
			action:       "telegram_reply_to_message",
			args:         map[string]any{"chat_id": true, "message_id": 45, "text": "hi"},
			wantContains: []string{"chat_id"},
		},
		{
			name:         "fractional chat id",
			action:       "telegram_reply_to_message",
			args:         map[string]any{"chat_id": 12.5, "message_id": 45, "text": "hi"},
			wantContains: []string{"chat_id"},
		},
		{
			name:         "explicit zero limit",
			action:       "telegram_list_chats",
			args:         map[string]any{"limit": 0},
			wantContains: []string{"limit"},
		},
		{
			name:         "limit above maximum",
			action:       "telegram_list_chats",
			args:         map[string]any{"limit": 500},
			wantContains: []string{"limit"},
		},
		{
			name:         "unknown action",
			action:       "telegram_nope",
			args:         map[string]any{},
			wantContains: []string{"telegram_nope"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubClient{}
			d := newTestDispatcher(t, readyHandle(client))

			env := d.Call(context.Background(), tt.action, tt.args)

			require.False(t, env.OK())
			assert.Equal(t, KindBadInput, env.Failure.Kind)
			for _, want := range tt.wantContains {
				assert.Contains(t, env.Failure.Message, want)
			}
			assert.Zero(t, client.calls, "delegation must not run on bad input")
		})
	}
}

func TestCall_MissingMessageListsFieldsInOrder(t *testing.T) {
	d := newTestDispatcher(t, readyHandle(&stubClient{}))

	env := d.Call(context.Background(), "telegram_reply_to_message", map[string]any{"chat_id": "123"})

	require.False(t, env.OK())
	assert.Equal(t, "missing required arguments: message_id, text", env.Failure.Message)
}

func TestCall_ClientUnavailable(t *testing.T) {
	client := &stubClient{}
	h := HandleFunc[*stubClient](func(context.Context) (*stubClient, error) {
		return nil, errors.New("not logged in")
	})
	d := newTestDispatcher(t, h)

	argSets := []map[string]any{
		{"chat_id": "123", "message_id": 45, "text": "hi"},
		{"chat_id": "123"},
		nil,
	}
	for _, name := range []string{"telegram_reply_to_message", "telegram_list_chats"} {
		for _, args := range argSets {
			env := d.Call(context.Background(), name, args)
			require.False(t, env.OK())
			assert.Equal(t, KindClientUnavailable, env.Failure.Kind)
			assert.Contains(t, env.Failure.Message, "not logged in")
		}
	}
	assert.Zero(t, client.calls)
}

func TestCall_HandleReturnsNormalizedError(t *testing.T) {
	h := HandleFunc[*stubClient](func(context.Context) (*stubClient, error) {
		return nil, &Error{Kind: KindClientUnavailable, Message: "session expired"}
	})
	d := newTestDispatcher(t, h)

	env := d.Call(context.Background(), "telegram_list_chats", nil)

	require.False(t, env.OK())
	assert.Equal(t, "session expired", env.Failure.Message)
}

func TestCall_DelegationErrorThenRecovery(t *testing.T) {
	client := &stubClient{err: errors.New("flood wait 30s")}
	d := newTestDispatcher(t, readyHandle(client))
	args := map[string]any{"chat_id": "123", "message_id": 45, "text": "hi"}

	env := d.Call(context.Background(), "telegram_reply_to_message", args)
	require.False(t, env.OK())
	assert.Equal(t, KindInternal, env.Failure.Kind)
	assert.Contains(t, env.Failure.Message, "flood wait 30s")

	client.err = nil
	client.result = sentMessage{MessageID: "1", Date: "2024-01-01T00:00:00Z"}
	env = d.Call(context.Background(), "telegram_reply_to_message", args)
	assert.True(t, env.OK(), env.Text())
	assert.Equal(t, 2, client.calls)
}

func TestCall_PanicBecomesInternalError(t *testing.T) {
	client := &stubClient{panicOn: "nil map"}
	d := newTestDispatcher(t, readyHandle(client))

	env := d.Call(context.Background(), "telegram_reply_to_message",
		map[string]any{"chat_id": "123", "message_id": 45, "text": "hi"})

	require.False(t, env.OK())
	assert.Equal(t, KindInternal, env.Failure.Kind)
	assert.Contains(t, env.Failure.Message, "nil map")
}

func TestCall_NormalizedErrorPassesThrough(t *testing.T) {
	client := &stubClient{err: BadInput("chat not found: @nobody")}
	d := newTestDispatcher(t, readyHandle(client))

	env := d.Call(context.Background(), "telegram_reply_to_message",
		map[string]any{"chat_id": "@nobody", "message_id": 45, "text": "hi"})

	require.False(t, env.OK())
	assert.Equal(t, KindBadInput, env.Failure.Kind)
	assert.Equal(t, "chat not found: @nobody", env.Failure.Message)
}

func TestEnvelope_RoundTrip(t *testing.T) {
	client := &stubClient{result: sentMessage{MessageID: "999", Date: "2024-01-01T00:00:00Z"}}
	d := newTestDispatcher(t, readyHandle(client))

	env := d.Call(context.Background(), "telegram_reply_to_message",
		map[string]any{"chat_id": "123", "message_id": 45, "text": "hi"})
	require.True(t, env.OK())

	var back sentMessage
	require.NoError(t, json.Unmarshal([]byte(env.Text()), &back))
	assert.Equal(t, client.result, back)
	assert.Contains(t, env.Text(), "\n  \"message_id\"", "payload should be indented")
}

func TestEnvelope_FailureText(t *testing.T) {
	env := failed("telegram_get_me", Unavailable(errors.New("no session")))

	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(env.Text()), &body))
	assert.Equal(t, "client_unavailable", body["error"]["kind"])
	assert.Equal(t, float64(CodeClientUnavailable), body["error"]["code"])
	assert.Equal(t, "telegram client unavailable: no session", body["error"]["message"])
}

func TestKind_Code(t *testing.T) {
	assert.Equal(t, mcp.INVALID_PARAMS, KindBadInput.Code())
	assert.Equal(t, CodeClientUnavailable, KindClientUnavailable.Code())
	assert.Equal(t, mcp.INTERNAL_ERROR, KindInternal.Code())
}

func TestToolResult(t *testing.T) {
	ok := succeed("telegram_get_me", map[string]string{"id": "1"})
	res := ToolResult(ok)
	assert.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	text, isText := res.Content[0].(mcp.TextContent)
	require.True(t, isText)
	assert.Equal(t, ok.Text(), text.Text)

	bad := failed("telegram_get_me", BadInput("nope"))
	res = ToolResult(bad)
	assert.True(t, res.IsError)
}

func TestPrompt(t *testing.T) {
	t.Run("success renders payload", func(t *testing.T) {
		client := &stubClient{result: sentMessage{MessageID: "999", Date: "2024-01-01T00:00:00Z"}}
		d := newTestDispatcher(t, readyHandle(client))

		env := d.Prompt(context.Background(), "telegram_reply_to_message",
			map[string]string{"chat_id": "123", "message_id": "45", "text": "hi"})
		res := PromptResult("Reply", env)

		assert.Equal(t, "Reply Result", res.Description)
		require.Len(t, res.Messages, 1)
		text, isText := res.Messages[0].Content.(mcp.TextContent)
		require.True(t, isText)
		assert.JSONEq(t, `{"message_id":"999","date":"2024-01-01T00:00:00Z"}`, text.Text)
	})

	t.Run("missing arguments reported before readiness", func(t *testing.T) {
		h := HandleFunc[*stubClient](func(context.Context) (*stubClient, error) {
			return nil, errors.New("offline")
		})
		d := newTestDispatcher(t, h)

		env := d.Prompt(context.Background(), "telegram_reply_to_message", map[string]string{"chat_id": "123"})
		res := PromptResult("Reply", env)

		assert.Equal(t, "Error", res.Description)
		text, isText := res.Messages[0].Content.(mcp.TextContent)
		require.True(t, isText)
		assert.Equal(t, "Error: missing required arguments: message_id, text", text.Text)
	})
}

func TestRegister_Errors(t *testing.T) {
	d := newTestDispatcher(t, readyHandle(&stubClient{}))

	err := Register(d, Action[*stubClient, listInput, []string]{
		Name: "telegram_list_chats",
		Run: func(context.Context, *stubClient, listInput) ([]string, error) {
			return nil, nil
		},
	})
	assert.ErrorContains(t, err, "already registered")

	err = Register(d, Action[*stubClient, string, string]{
		Name: "bad_input_type",
		Run: func(context.Context, *stubClient, string) (string, error) {
			return "", nil
		},
	})
	assert.ErrorContains(t, err, "must be a struct")

	err = Register(d, Action[*stubClient, listInput, string]{Name: "no_run"})
	assert.ErrorContains(t, err, "no run function")
}

func TestDescriptor(t *testing.T) {
	d := newTestDispatcher(t, readyHandle(&stubClient{}))

	desc, ok := d.Lookup("telegram_reply_to_message")
	require.True(t, ok)
	assert.Equal(t, []string{"chat_id", "message_id", "text"}, desc.Required)
	assert.Equal(t, []string{"chat_id", "message_id", "text"}, desc.Arguments())

	tool := desc.Tool()
	assert.Equal(t, "telegram_reply_to_message", tool.Name)
	assert.Equal(t, "Replies to a specific message.", tool.Description)
	assert.Contains(t, tool.InputSchema.Properties, "chat_id")
	assert.Equal(t, []string{"chat_id", "message_id", "text"}, tool.InputSchema.Required)

	prompt := desc.Prompt()
	require.Len(t, prompt.Arguments, 3)
	assert.Equal(t, "chat_id", prompt.Arguments[0].Name)
	assert.Equal(t, "Target chat ID or username", prompt.Arguments[0].Description)
	assert.True(t, prompt.Arguments[0].Required)

	names := []string{}
	for _, desc := range d.Descriptors() {
		names = append(names, desc.Name)
	}
	assert.Equal(t, []string{"telegram_reply_to_message", "telegram_list_chats"}, names)
}
