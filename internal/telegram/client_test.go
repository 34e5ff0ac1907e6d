package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBotAPI implements botAPI for tests.
type mockBotAPI struct {
	mu sync.Mutex

	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	raw      []rawRequest

	me       tgbotapi.User
	chat     tgbotapi.Chat
	updates  []tgbotapi.Update
	reply    tgbotapi.Message
	response *tgbotapi.APIResponse
	err      error

	chatConfig tgbotapi.ChatInfoConfig
}

type rawRequest struct {
	endpoint string
	params   tgbotapi.Params
}

func (m *mockBotAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, c)
	if m.err != nil {
		return tgbotapi.Message{}, m.err
	}
	return m.reply, nil
}

func (m *mockBotAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, c)
	if m.err != nil {
		return nil, m.err
	}
	return m.okResponse(), nil
}

func (m *mockBotAPI) GetMe() (tgbotapi.User, error) {
	if m.err != nil {
		return tgbotapi.User{}, m.err
	}
	return m.me, nil
}

func (m *mockBotAPI) GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatConfig = config
	if m.err != nil {
		return tgbotapi.Chat{}, m.err
	}
	return m.chat, nil
}

func (m *mockBotAPI) GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.updates, nil
}

func (m *mockBotAPI) MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = append(m.raw, rawRequest{endpoint: endpoint, params: params})
	if m.err != nil {
		return nil, m.err
	}
	return m.okResponse(), nil
}

func (m *mockBotAPI) okResponse() *tgbotapi.APIResponse {
	if m.response != nil {
		return m.response
	}
	return &tgbotapi.APIResponse{Ok: true, Result: json.RawMessage("true")}
}

func newTestClient(bot *mockBotAPI) *Client {
	return newClient(bot, tgbotapi.User{ID: 42, IsBot: true, FirstName: "Test", UserName: "test_bot"}, nil, "")
}

func TestClient_GetMe(t *testing.T) {
	bot := &mockBotAPI{me: tgbotapi.User{
		ID:            42,
		IsBot:         true,
		FirstName:     "Test",
		UserName:      "test_bot",
		CanJoinGroups: true,
	}}
	client := newTestClient(bot)

	profile, err := client.GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Profile{
		ID:            "42",
		Username:      "test_bot",
		FirstName:     "Test",
		IsBot:         true,
		CanJoinGroups: true,
	}, profile)
}

func TestClient_GetChat(t *testing.T) {
	tests := []struct {
		name         string
		chat         string
		wantID       int64
		wantUsername string
	}{
		{name: "numeric id", chat: "-1001234567890", wantID: -1001234567890},
		{name: "username", chat: "@telegram", wantUsername: "@telegram"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := &mockBotAPI{chat: tgbotapi.Chat{ID: -1001234567890, Type: "channel", Title: "News", UserName: "telegram"}}
			client := newTestClient(bot)

			info, err := client.GetChat(context.Background(), tt.chat)
			require.NoError(t, err)
			assert.Equal(t, "-1001234567890", info.ID)
			assert.Equal(t, "channel", info.Type)
			assert.Equal(t, "News", info.Title)
			assert.Equal(t, tt.wantID, bot.chatConfig.ChatID)
			assert.Equal(t, tt.wantUsername, bot.chatConfig.SuperGroupUsername)
		})
	}
}

func TestClient_InvalidChatRef(t *testing.T) {
	bot := &mockBotAPI{}
	client := newTestClient(bot)

	_, err := client.SendMessage(context.Background(), "not a chat", "hi", MessageOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidChatRef)

	var te *TelegramError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "sendMessage", te.Op)
	assert.Empty(t, bot.sent)
}

func TestClient_SendMessage(t *testing.T) {
	bot := &mockBotAPI{reply: tgbotapi.Message{MessageID: 999, Date: 1704067200}}
	client := newTestClient(bot)

	sent, err := client.SendMessage(context.Background(), "123", "hello", MessageOptions{ParseMode: "HTML", DisableNotification: true})
	require.NoError(t, err)
	assert.Equal(t, SentMessage{MessageID: "999", Date: "2024-01-01T00:00:00Z"}, sent)

	require.Len(t, bot.sent, 1)
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(123), msg.ChatID)
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, "HTML", msg.ParseMode)
	assert.True(t, msg.DisableNotification)
	assert.Zero(t, msg.ReplyToMessageID)
}

func TestClient_SendMessageToChannel(t *testing.T) {
	bot := &mockBotAPI{reply: tgbotapi.Message{MessageID: 1, Date: 1704067200}}
	client := newTestClient(bot)

	_, err := client.SendMessage(context.Background(), "@my_channel", "hello", MessageOptions{})
	require.NoError(t, err)

	msg := bot.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, "@my_channel", msg.ChannelUsername)
	assert.Zero(t, msg.ChatID)
}

func TestClient_SendMessageEmptyText(t *testing.T) {
	bot := &mockBotAPI{}
	client := newTestClient(bot)

	_, err := client.SendMessage(context.Background(), "123", "   ", MessageOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text cannot be empty")
	assert.Empty(t, bot.sent)
}

func TestClient_ReplyToMessage(t *testing.T) {
	bot := &mockBotAPI{reply: tgbotapi.Message{MessageID: 999, Date: 1704067200}}
	client := newTestClient(bot)

	sent, err := client.ReplyToMessage(context.Background(), "123", 45, "hi", MessageOptions{})
	require.NoError(t, err)
	assert.Equal(t, SentMessage{MessageID: "999", Date: "2024-01-01T00:00:00Z"}, sent)

	msg := bot.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, 45, msg.ReplyToMessageID)
}

func TestClient_EditMessage(t *testing.T) {
	bot := &mockBotAPI{reply: tgbotapi.Message{
		MessageID: 45,
		Chat:      &tgbotapi.Chat{ID: 123},
		Text:      "fixed",
		EditDate:  1704067200,
	}}
	client := newTestClient(bot)

	edited, err := client.EditMessage(context.Background(), "123", 45, "fixed")
	require.NoError(t, err)
	assert.Equal(t, EditedMessage{MessageID: "45", ChatID: "123", Text: "fixed", EditDate: "2024-01-01T00:00:00Z"}, edited)

	cfg := bot.sent[0].(tgbotapi.EditMessageTextConfig)
	assert.Equal(t, int64(123), cfg.ChatID)
	assert.Equal(t, 45, cfg.MessageID)
	assert.Equal(t, "fixed", cfg.Text)
}

func TestClient_DeleteAndPin(t *testing.T) {
	bot := &mockBotAPI{}
	client := newTestClient(bot)
	ctx := context.Background()

	res, err := client.DeleteMessage(ctx, "123", 45)
	require.NoError(t, err)
	assert.Equal(t, ActionResult{OK: true, ChatID: "123", MessageID: "45"}, res)

	res, err = client.PinMessage(ctx, "@my_channel", 46, true)
	require.NoError(t, err)
	assert.Equal(t, ActionResult{OK: true, ChatID: "@my_channel", MessageID: "46"}, res)

	require.Len(t, bot.requests, 2)
	del := bot.requests[0].(tgbotapi.DeleteMessageConfig)
	assert.Equal(t, int64(123), del.ChatID)
	assert.Equal(t, 45, del.MessageID)

	pin := bot.requests[1].(tgbotapi.PinChatMessageConfig)
	assert.Equal(t, "@my_channel", pin.ChannelUsername)
	assert.True(t, pin.DisableNotification)
}

func TestClient_ForwardMessage(t *testing.T) {
	bot := &mockBotAPI{reply: tgbotapi.Message{MessageID: 7, Date: 1704067200}}
	client := newTestClient(bot)

	sent, err := client.ForwardMessage(context.Background(), "123", "@source_chan", 45)
	require.NoError(t, err)
	assert.Equal(t, "7", sent.MessageID)

	fwd := bot.sent[0].(tgbotapi.ForwardConfig)
	assert.Equal(t, int64(123), fwd.ChatID)
	assert.Equal(t, "@source_chan", fwd.FromChannelUsername)
	assert.Equal(t, 45, fwd.MessageID)
}

func TestClient_React(t *testing.T) {
	bot := &mockBotAPI{}
	client := newTestClient(bot)

	res, err := client.React(context.Background(), "123", 45, "👍")
	require.NoError(t, err)
	assert.True(t, res.OK)

	require.Len(t, bot.raw, 1)
	assert.Equal(t, "setMessageReaction", bot.raw[0].endpoint)
	assert.Equal(t, "123", bot.raw[0].params["chat_id"])
	assert.Equal(t, "45", bot.raw[0].params["message_id"])
	assert.JSONEq(t, `[{"type":"emoji","emoji":"👍"}]`, bot.raw[0].params["reaction"])
}

func TestClient_ReactClear(t *testing.T) {
	bot := &mockBotAPI{}
	client := newTestClient(bot)

	_, err := client.React(context.Background(), "123", 45, "")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, bot.raw[0].params["reaction"])
}

func testUpdates() []tgbotapi.Update {
	alice := &tgbotapi.Chat{ID: 1, Type: "private", FirstName: "Alice", UserName: "alice"}
	group := &tgbotapi.Chat{ID: -100, Type: "supergroup", Title: "Team"}
	return []tgbotapi.Update{
		{UpdateID: 1, Message: &tgbotapi.Message{MessageID: 10, Chat: alice, From: &tgbotapi.User{ID: 1, UserName: "alice"}, Date: 1000, Text: "first"}},
		{UpdateID: 2, Message: &tgbotapi.Message{MessageID: 5, Chat: group, From: &tgbotapi.User{ID: 2, FirstName: "Bob"}, Date: 2000, Text: "standup"}},
		{UpdateID: 3, Message: &tgbotapi.Message{MessageID: 11, Chat: alice, From: &tgbotapi.User{ID: 1, UserName: "alice"}, Date: 3000, Text: "second",
			ReplyToMessage: &tgbotapi.Message{MessageID: 10}}},
		{UpdateID: 4, EditedMessage: &tgbotapi.Message{MessageID: 10, Chat: alice, From: &tgbotapi.User{ID: 1, UserName: "alice"}, Date: 1000, EditDate: 3500, Text: "first (edited)"}},
	}
}

func TestClient_ListChats(t *testing.T) {
	bot := &mockBotAPI{updates: testUpdates()}
	client := newTestClient(bot)

	chats, err := client.ListChats(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, chats, 2)

	assert.Equal(t, ChatSummary{
		ID:              "1",
		Type:            "private",
		Name:            "Alice",
		Username:        "alice",
		LastMessageID:   "11",
		LastMessageDate: "1970-01-01T00:50:00Z",
	}, chats[0])
	assert.Equal(t, "-100", chats[1].ID)
	assert.Equal(t, "Team", chats[1].Name)

	limited, err := client.ListChats(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestClient_RecentMessages(t *testing.T) {
	bot := &mockBotAPI{updates: testUpdates()}
	client := newTestClient(bot)

	messages, err := client.RecentMessages(context.Background(), "@Alice", 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, "11", messages[0].MessageID)
	assert.Equal(t, "10", messages[0].ReplyToMessageID)
	assert.Equal(t, "@alice", messages[0].From)

	// the edited version replaces the original
	assert.Equal(t, "10", messages[1].MessageID)
	assert.Equal(t, "first (edited)", messages[1].Text)
	assert.NotEmpty(t, messages[1].EditDate)
}

func TestClient_RecentMessagesError(t *testing.T) {
	bot := &mockBotAPI{err: &tgbotapi.Error{Code: 409, Message: "Conflict: can't use getUpdates method while webhook is active"}}
	client := newTestClient(bot)

	_, err := client.RecentMessages(context.Background(), "123", 10)
	require.Error(t, err)

	var te *TelegramError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "getUpdates", te.Op)
	assert.Equal(t, "123", te.Chat)
	assert.Equal(t, 409, APIErrorCode(err))
}

func TestClient_Close(t *testing.T) {
	bot := &mockBotAPI{}
	client := newTestClient(bot)

	require.NoError(t, client.Ready(context.Background()))
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	assert.ErrorIs(t, client.Ready(context.Background()), ErrClosed)

	_, err := client.GetMe(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClient_CanceledContext(t *testing.T) {
	client := newTestClient(&mockBotAPI{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetChat(ctx, "123")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAPIErrorCode(t *testing.T) {
	assert.Equal(t, 401, APIErrorCode(&tgbotapi.Error{Code: 401, Message: "Unauthorized"}))
	assert.Equal(t, 403, APIErrorCode(tgbotapi.Error{Code: 403}))
	assert.Equal(t, 0, APIErrorCode(errors.New("boom")))

	wrapped := &TelegramError{Op: "getMe", Err: &tgbotapi.Error{Code: 401}}
	assert.True(t, IsUnauthorized(wrapped))
}

func TestTelegramError(t *testing.T) {
	err := &TelegramError{Op: "sendMessage", Chat: "123", Err: errors.New("boom")}
	assert.Equal(t, "telegram sendMessage (chat: 123): boom", err.Error())

	err = &TelegramError{Op: "getMe", Err: errors.New("boom")}
	assert.Equal(t, "telegram getMe: boom", err.Error())
}

const leakyToken = "123456:AAHsecretPartOfTheToken"

// newDroppingBotAPI answers getMe and drops the connection of every other
// call, so the client sees a transport error quoting the request URL.
func newDroppingBotAPI(t *testing.T, dropGetMe bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/getMe") && !dropGetMe {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":123456,"is_bot":true,"first_name":"Test","username":"test_bot"}}`))
			return
		}
		if conn, _, err := w.(http.Hijacker).Hijack(); err == nil {
			_ = conn.Close()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_TransportErrorHidesToken(t *testing.T) {
	srv := newDroppingBotAPI(t, false)

	client, err := NewClient(context.Background(), Config{
		Token:       leakyToken,
		APIEndpoint: srv.URL + "/bot%s/%s",
		Timeout:     5 * time.Second,
	})
	require.NoError(t, err)

	_, err = client.SendMessage(context.Background(), "123", "hello", MessageOptions{})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "AAHsecretPartOfTheToken")
	assert.Contains(t, err.Error(), "123456:[")

	var tgErr *TelegramError
	require.ErrorAs(t, err, &tgErr)
	assert.Equal(t, "sendMessage", tgErr.Op)
}

func TestNewClient_TransportErrorHidesToken(t *testing.T) {
	srv := newDroppingBotAPI(t, true)

	_, err := NewClient(context.Background(), Config{
		Token:       leakyToken,
		APIEndpoint: srv.URL + "/bot%s/%s",
		Timeout:     5 * time.Second,
	})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "AAHsecretPartOfTheToken")
}

func TestRedactToken(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		token   string
		want    string
		wantNil bool
	}{
		{name: "nil error", err: nil, token: leakyToken, wantNil: true},
		{name: "empty token", err: errors.New("boom"), token: "", want: "boom"},
		{name: "no token in text", err: errors.New("boom"), token: leakyToken, want: "boom"},
		{
			name:  "plain token",
			err:   errors.New(`Post "https://api.telegram.org/bot` + leakyToken + `/sendMessage": EOF`),
			token: leakyToken,
			want:  `Post "https://api.telegram.org/bot123456:[23 chars]/sendMessage": EOF`,
		},
		{
			name:  "escaped token",
			err:   errors.New("bot123456:abc%2Fdef/getMe"),
			token: "123456:abc/def",
			want:  "bot123456:[7 chars]/getMe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redactToken(tt.err, tt.token)
			if tt.wantNil {
				assert.NoError(t, got)
				return
			}
			assert.Equal(t, tt.want, got.Error())
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestRedactToken_KeepsClosedSentinel(t *testing.T) {
	err := redactToken(fmt.Errorf("%w: bot%s", ErrClosed, leakyToken), leakyToken)
	assert.ErrorIs(t, err, ErrClosed)
	assert.NotContains(t, err.Error(), "AAHsecret")
}
