package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxUpdates is the largest batch getUpdates returns.
const maxUpdates = 100

// botAPI is the subset of *tgbotapi.BotAPI the client uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetMe() (tgbotapi.User, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// MessageOptions tunes how a message is sent.
type MessageOptions struct {
	// ParseMode is "", "MarkdownV2", "Markdown" or "HTML".
	ParseMode             string
	DisableNotification   bool
	DisableWebPagePreview bool
}

// Client provides access to Telegram through the Bot API.
type Client struct {
	bot  botAPI
	http *http.Client
	self tgbotapi.User

	// token is masked out of every error the client returns.
	token string

	mu     sync.RWMutex
	closed bool
}

// NewClient resolves the token from cfg and connects to the Bot API. The
// token is verified with getMe before the client is returned.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	token, err := cfg.ResolveToken()
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout()}
	bot, err := tgbotapi.NewBotAPIWithClient(token, cfg.Endpoint(), httpClient)
	if err != nil {
		return nil, &TelegramError{Op: "getMe", Err: redactToken(err, token)}
	}

	return newClient(bot, bot.Self, httpClient, token), nil
}

func newClient(bot botAPI, self tgbotapi.User, httpClient *http.Client, token string) *Client {
	return &Client{
		bot:   bot,
		http:  httpClient,
		self:  self,
		token: token,
	}
}

// Self returns the account the client connected as.
func (c *Client) Self() Profile {
	return profileFromUser(c.self)
}

// Ready reports whether the client can serve requests.
func (c *Client) Ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

// Close releases idle connections. Calls after Close fail with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.http != nil {
		c.http.CloseIdleConnections()
	}
	return nil
}

// check runs before every request.
func (c *Client) check(ctx context.Context, op, chat string) error {
	if err := c.Ready(ctx); err != nil {
		return c.fail(op, chat, err)
	}
	return nil
}

// GetMe fetches the profile of the logged-in account.
func (c *Client) GetMe(ctx context.Context) (Profile, error) {
	if err := c.check(ctx, "getMe", ""); err != nil {
		return Profile{}, err
	}

	user, err := c.bot.GetMe()
	if err != nil {
		return Profile{}, c.fail("getMe", "", err)
	}
	return profileFromUser(user), nil
}

// GetChat fetches information about a chat.
func (c *Client) GetChat(ctx context.Context, chat string) (ChatInfo, error) {
	ref, err := c.resolve(ctx, "getChat", chat)
	if err != nil {
		return ChatInfo{}, err
	}

	cfg := tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{
		ChatID:             ref.ID,
		SuperGroupUsername: ref.Username,
	}}
	ch, err := c.bot.GetChat(cfg)
	if err != nil {
		return ChatInfo{}, c.fail("getChat", chat, err)
	}

	return ChatInfo{
		ID:          formatID(ch.ID),
		Type:        ch.Type,
		Title:       ch.Title,
		Username:    ch.UserName,
		FirstName:   ch.FirstName,
		LastName:    ch.LastName,
		Description: ch.Description,
	}, nil
}

// ListChats returns the chats seen in pending updates, most recently active
// first.
func (c *Client) ListChats(ctx context.Context, limit int) ([]ChatSummary, error) {
	if err := c.check(ctx, "getUpdates", ""); err != nil {
		return nil, err
	}

	messages, err := c.pendingMessages()
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool)
	chats := make([]ChatSummary, 0)
	for _, m := range messages {
		if m.Chat == nil || seen[m.Chat.ID] {
			continue
		}
		seen[m.Chat.ID] = true
		chats = append(chats, ChatSummary{
			ID:              formatID(m.Chat.ID),
			Type:            m.Chat.Type,
			Name:            chatName(m.Chat),
			Username:        m.Chat.UserName,
			LastMessageID:   strconv.Itoa(m.MessageID),
			LastMessageDate: formatDate(latest(m)),
		})
		if limit > 0 && len(chats) == limit {
			break
		}
	}
	return chats, nil
}

// RecentMessages returns messages of one chat seen in pending updates,
// newest first.
func (c *Client) RecentMessages(ctx context.Context, chat string, limit int) ([]MessageInfo, error) {
	ref, err := c.resolve(ctx, "getUpdates", chat)
	if err != nil {
		return nil, err
	}

	messages, err := c.pendingMessages()
	if err != nil {
		return nil, &TelegramError{Op: "getUpdates", Chat: chat, Err: errors.Unwrap(err)}
	}

	out := make([]MessageInfo, 0)
	for _, m := range messages {
		if m.Chat == nil || !ref.Matches(m.Chat.ID, m.Chat.UserName) {
			continue
		}
		out = append(out, messageInfo(m))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// pendingMessages reads the update queue without confirming it and returns
// the newest version of every message, newest first.
func (c *Client) pendingMessages() ([]*tgbotapi.Message, error) {
	updates, err := c.bot.GetUpdates(tgbotapi.UpdateConfig{Offset: 0, Limit: maxUpdates})
	if err != nil {
		return nil, c.fail("getUpdates", "", err)
	}

	type key struct {
		chat int64
		id   int
	}
	byKey := make(map[key]*tgbotapi.Message)
	for _, u := range updates {
		for _, m := range []*tgbotapi.Message{u.Message, u.EditedMessage, u.ChannelPost, u.EditedChannelPost} {
			if m == nil || m.Chat == nil {
				continue
			}
			k := key{chat: m.Chat.ID, id: m.MessageID}
			if prev, ok := byKey[k]; ok && latest(prev) > latest(m) {
				continue
			}
			byKey[k] = m
		}
	}

	messages := make([]*tgbotapi.Message, 0, len(byKey))
	for _, m := range byKey {
		messages = append(messages, m)
	}
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].Date != messages[j].Date {
			return messages[i].Date > messages[j].Date
		}
		return messages[i].MessageID > messages[j].MessageID
	})
	return messages, nil
}

// SendMessage sends a text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chat, text string, opts MessageOptions) (SentMessage, error) {
	return c.send(ctx, "sendMessage", chat, text, 0, opts)
}

// ReplyToMessage sends text as a reply to messageID.
func (c *Client) ReplyToMessage(ctx context.Context, chat string, messageID int, text string, opts MessageOptions) (SentMessage, error) {
	return c.send(ctx, "sendMessage", chat, text, messageID, opts)
}

func (c *Client) send(ctx context.Context, op, chat, text string, replyTo int, opts MessageOptions) (SentMessage, error) {
	ref, err := c.resolve(ctx, op, chat)
	if err != nil {
		return SentMessage{}, err
	}
	if strings.TrimSpace(text) == "" {
		return SentMessage{}, &TelegramError{Op: op, Chat: chat, Err: errors.New("text cannot be empty")}
	}

	var msg tgbotapi.MessageConfig
	if ref.Username != "" {
		msg = tgbotapi.NewMessageToChannel(ref.Username, text)
	} else {
		msg = tgbotapi.NewMessage(ref.ID, text)
	}
	msg.ReplyToMessageID = replyTo
	msg.ParseMode = opts.ParseMode
	msg.DisableNotification = opts.DisableNotification
	msg.DisableWebPagePreview = opts.DisableWebPagePreview

	sent, err := c.bot.Send(msg)
	if err != nil {
		return SentMessage{}, c.fail(op, chat, err)
	}
	return SentMessage{
		MessageID: strconv.Itoa(sent.MessageID),
		Date:      formatDate(sent.Date),
	}, nil
}

// EditMessage replaces the text of a message sent by this account.
func (c *Client) EditMessage(ctx context.Context, chat string, messageID int, text string) (EditedMessage, error) {
	ref, err := c.resolve(ctx, "editMessageText", chat)
	if err != nil {
		return EditedMessage{}, err
	}

	edit := tgbotapi.EditMessageTextConfig{
		BaseEdit: tgbotapi.BaseEdit{
			ChatID:          ref.ID,
			ChannelUsername: ref.Username,
			MessageID:       messageID,
		},
		Text: text,
	}
	msg, err := c.bot.Send(edit)
	if err != nil {
		return EditedMessage{}, c.fail("editMessageText", chat, err)
	}

	chatID := chat
	if msg.Chat != nil {
		chatID = formatID(msg.Chat.ID)
	}
	out := EditedMessage{
		MessageID: strconv.Itoa(messageID),
		ChatID:    chatID,
		Text:      text,
	}
	if msg.MessageID != 0 {
		out.MessageID = strconv.Itoa(msg.MessageID)
		out.Text = msg.Text
	}
	if msg.EditDate != 0 {
		out.EditDate = formatDate(msg.EditDate)
	}
	return out, nil
}

// DeleteMessage deletes a message.
func (c *Client) DeleteMessage(ctx context.Context, chat string, messageID int) (ActionResult, error) {
	ref, err := c.resolve(ctx, "deleteMessage", chat)
	if err != nil {
		return ActionResult{}, err
	}

	del := tgbotapi.DeleteMessageConfig{
		ChatID:          ref.ID,
		ChannelUsername: ref.Username,
		MessageID:       messageID,
	}
	return c.request(del, "deleteMessage", chat, messageID)
}

// ForwardMessage forwards messageID from one chat to another.
func (c *Client) ForwardMessage(ctx context.Context, to, from string, messageID int) (SentMessage, error) {
	toRef, err := c.resolve(ctx, "forwardMessage", to)
	if err != nil {
		return SentMessage{}, err
	}
	fromRef, err := c.resolve(ctx, "forwardMessage", from)
	if err != nil {
		return SentMessage{}, err
	}

	fwd := tgbotapi.ForwardConfig{
		BaseChat: tgbotapi.BaseChat{
			ChatID:          toRef.ID,
			ChannelUsername: toRef.Username,
		},
		FromChatID:          fromRef.ID,
		FromChannelUsername: fromRef.Username,
		MessageID:           messageID,
	}
	sent, err := c.bot.Send(fwd)
	if err != nil {
		return SentMessage{}, c.fail("forwardMessage", to, err)
	}
	return SentMessage{
		MessageID: strconv.Itoa(sent.MessageID),
		Date:      formatDate(sent.Date),
	}, nil
}

// PinMessage pins a message in a chat.
func (c *Client) PinMessage(ctx context.Context, chat string, messageID int, silent bool) (ActionResult, error) {
	ref, err := c.resolve(ctx, "pinChatMessage", chat)
	if err != nil {
		return ActionResult{}, err
	}

	pin := tgbotapi.PinChatMessageConfig{
		ChatID:              ref.ID,
		ChannelUsername:     ref.Username,
		MessageID:           messageID,
		DisableNotification: silent,
	}
	return c.request(pin, "pinChatMessage", chat, messageID)
}

// React sets an emoji reaction on a message. An empty emoji removes the
// reactions set by this account.
func (c *Client) React(ctx context.Context, chat string, messageID int, emoji string) (ActionResult, error) {
	if _, err := c.resolve(ctx, "setMessageReaction", chat); err != nil {
		return ActionResult{}, err
	}

	type reaction struct {
		Type  string `json:"type"`
		Emoji string `json:"emoji"`
	}
	reactions := []reaction{}
	if emoji != "" {
		reactions = append(reactions, reaction{Type: "emoji", Emoji: emoji})
	}
	encoded, err := json.Marshal(reactions)
	if err != nil {
		return ActionResult{}, c.fail("setMessageReaction", chat, err)
	}

	params := tgbotapi.Params{
		"chat_id":    strings.TrimSpace(chat),
		"message_id": strconv.Itoa(messageID),
		"reaction":   string(encoded),
	}
	resp, err := c.bot.MakeRequest("setMessageReaction", params)
	if err != nil {
		return ActionResult{}, c.fail("setMessageReaction", chat, err)
	}
	return c.actionResult(resp, chat, messageID), nil
}

func (c *Client) request(cfg tgbotapi.Chattable, op, chat string, messageID int) (ActionResult, error) {
	resp, err := c.bot.Request(cfg)
	if err != nil {
		return ActionResult{}, c.fail(op, chat, err)
	}
	return c.actionResult(resp, chat, messageID), nil
}

func (c *Client) actionResult(resp *tgbotapi.APIResponse, chat string, messageID int) ActionResult {
	ok := resp != nil && resp.Ok
	if ok && len(resp.Result) > 0 {
		var b bool
		if json.Unmarshal(resp.Result, &b) == nil {
			ok = b
		}
	}
	return ActionResult{
		OK:        ok,
		ChatID:    strings.TrimSpace(chat),
		MessageID: strconv.Itoa(messageID),
	}
}

// fail wraps a Bot API error. Transport errors quote the request URL,
// which embeds the token.
func (c *Client) fail(op, chat string, err error) *TelegramError {
	return &TelegramError{Op: op, Chat: chat, Err: redactToken(err, c.token)}
}

// resolve checks readiness and parses a chat reference.
func (c *Client) resolve(ctx context.Context, op, chat string) (ChatRef, error) {
	if err := c.check(ctx, op, chat); err != nil {
		return ChatRef{}, err
	}
	ref, err := ParseChatRef(chat)
	if err != nil {
		return ChatRef{}, c.fail(op, chat, err)
	}
	return ref, nil
}

func profileFromUser(u tgbotapi.User) Profile {
	return Profile{
		ID:                      formatID(u.ID),
		Username:                u.UserName,
		FirstName:               u.FirstName,
		LastName:                u.LastName,
		IsBot:                   u.IsBot,
		CanJoinGroups:           u.CanJoinGroups,
		CanReadAllGroupMessages: u.CanReadAllGroupMessages,
	}
}

func messageInfo(m *tgbotapi.Message) MessageInfo {
	info := MessageInfo{
		MessageID: strconv.Itoa(m.MessageID),
		ChatID:    formatID(m.Chat.ID),
		ChatName:  chatName(m.Chat),
		Date:      formatDate(m.Date),
		Text:      m.Text,
	}
	if info.Text == "" {
		info.Text = m.Caption
	}
	if m.EditDate != 0 {
		info.EditDate = formatDate(m.EditDate)
	}
	switch {
	case m.From != nil:
		info.From = userName(m.From)
	case m.SenderChat != nil:
		info.From = chatName(m.SenderChat)
	}
	if m.ReplyToMessage != nil {
		info.ReplyToMessageID = strconv.Itoa(m.ReplyToMessage.MessageID)
	}
	return info
}

func chatName(ch *tgbotapi.Chat) string {
	if ch.Title != "" {
		return ch.Title
	}
	name := strings.TrimSpace(ch.FirstName + " " + ch.LastName)
	if name == "" && ch.UserName != "" {
		return "@" + ch.UserName
	}
	return name
}

func userName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// latest returns the last time a message changed.
func latest(m *tgbotapi.Message) int {
	if m.EditDate > m.Date {
		return m.EditDate
	}
	return m.Date
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func formatDate(unix int) string {
	if unix == 0 {
		return ""
	}
	return time.Unix(int64(unix), 0).UTC().Format(time.RFC3339)
}

// APIErrorCode returns the Bot API error code carried by err, or 0.
func APIErrorCode(err error) int {
	var pe *tgbotapi.Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	var ve tgbotapi.Error
	if errors.As(err, &ve) {
		return ve.Code
	}
	return 0
}

// IsUnauthorized reports whether err means the token was rejected.
func IsUnauthorized(err error) bool {
	return APIErrorCode(err) == http.StatusUnauthorized
}

func (c *Client) String() string {
	return fmt.Sprintf("telegram.Client(@%s)", c.self.UserName)
}
