// Package telegram adapts the Telegram Bot API
// (github.com/go-telegram-bot-api/telegram-bot-api/v5) to platform.Client.
//
// The library calls are blocking HTTP requests without context support. Each
// call runs in its own goroutine and the caller waits at most until its ctx
// is done or the configured call timeout elapses, whichever comes first.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tbourn/pull-party-bot/internal/platform"
)

// api is the subset of *tgbotapi.BotAPI used for outbound calls.
type api interface {
	GetChatAdministrators(config tgbotapi.ChatAdministratorsConfig) ([]tgbotapi.ChatMember, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Client implements platform.Client on top of the Bot API.
type Client struct {
	bot      *tgbotapi.BotAPI
	api      api
	username string
	timeout  time.Duration
}

var _ platform.Client = (*Client)(nil)

// New authenticates with token and returns a ready client. callTimeout bounds
// every outbound request; zero means only the caller's ctx applies.
func New(token string, callTimeout time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &Client{bot: bot, api: bot, username: bot.Self.UserName, timeout: callTimeout}, nil
}

// Username returns the bot's own username without '@'.
func (c *Client) Username() string { return c.username }

// GetAdministrators returns the current administrator roster of a chat.
func (c *Client) GetAdministrators(ctx context.Context, chatID int64) ([]platform.Administrator, error) {
	members, err := do(ctx, c.timeout, func() ([]tgbotapi.ChatMember, error) {
		return c.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
			ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("get administrators of %d: %w", chatID, err)
	}
	out := make([]platform.Administrator, 0, len(members))
	for _, m := range members {
		if m.User == nil {
			continue
		}
		out = append(out, platform.Administrator{
			UserID:   m.User.ID,
			Username: m.User.UserName,
			Status:   m.Status,
		})
	}
	return out, nil
}

// SendMessage sends msg and returns the id of the created message.
func (c *Client) SendMessage(ctx context.Context, msg platform.OutMessage) (int, error) {
	cfg := tgbotapi.NewMessage(msg.ChatID, msg.Text)
	cfg.ParseMode = msg.ParseMode
	cfg.ReplyToMessageID = msg.ReplyTo
	cfg.DisableWebPagePreview = true
	if len(msg.Keyboard) > 0 {
		cfg.ReplyMarkup = keyboard(msg.Keyboard)
	}
	sent, err := do(ctx, c.timeout, func() (tgbotapi.Message, error) {
		return c.api.Send(cfg)
	})
	if err != nil {
		return 0, fmt.Errorf("send message to %d: %w", msg.ChatID, err)
	}
	return sent.MessageID, nil
}

// DeleteMessage removes a message from a chat.
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return c.request(ctx, tgbotapi.NewDeleteMessage(chatID, messageID))
}

// AnswerCallback acknowledges a button press, optionally with a notice.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return c.request(ctx, tgbotapi.NewCallback(callbackID, text))
}

// SetCommands publishes the command menu.
func (c *Client) SetCommands(ctx context.Context, cmds []platform.Command) error {
	bc := make([]tgbotapi.BotCommand, 0, len(cmds))
	for _, cmd := range cmds {
		bc = append(bc, tgbotapi.BotCommand{Command: cmd.Name, Description: cmd.Description})
	}
	return c.request(ctx, tgbotapi.NewSetMyCommands(bc...))
}

// SetWebhook registers url as the delivery endpoint for updates.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("webhook url: %w", err)
	}
	wh.AllowedUpdates = allowedUpdates
	return c.request(ctx, wh)
}

// Poll long-polls for updates and forwards the supported ones to out until
// ctx is done.
func (c *Client) Poll(ctx context.Context, out chan<- platform.Update) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	cfg.AllowedUpdates = allowedUpdates

	updates := c.bot.GetUpdatesChan(cfg)
	defer c.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			pu, ok := Convert(u, c.username)
			if !ok {
				continue
			}
			select {
			case out <- pu:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// DecodeWebhook reads one update from a webhook request. ok is false for
// update kinds the bot does not handle.
func (c *Client) DecodeWebhook(r *http.Request) (u platform.Update, ok bool, err error) {
	raw, err := c.bot.HandleUpdate(r)
	if err != nil {
		return platform.Update{}, false, err
	}
	u, ok = Convert(*raw, c.username)
	return u, ok, nil
}

var allowedUpdates = []string{"message", "callback_query"}

func (c *Client) request(ctx context.Context, cfg tgbotapi.Chattable) error {
	_, err := do(ctx, c.timeout, func() (*tgbotapi.APIResponse, error) {
		return c.api.Request(cfg)
	})
	return err
}

func keyboard(rows [][]platform.Button) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		out = append(out, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}

// do runs fn in a goroutine and waits for it, ctx, or timeout. A call that
// outlives the wait keeps running in the background and its result is
// discarded.
func do[T any](ctx context.Context, timeout time.Duration, fn func() (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Convert maps a Bot API update to the neutral form. Commands addressed to
// another bot ("/list@OtherBot") are treated as plain text. ok is false for
// update kinds the bot ignores.
func Convert(u tgbotapi.Update, botUsername string) (platform.Update, bool) {
	switch {
	case u.CallbackQuery != nil:
		q := u.CallbackQuery
		out := &platform.CallbackQuery{ID: q.ID, Data: q.Data}
		if q.From != nil {
			out.From = user(q.From)
		}
		if q.Message != nil {
			m := message(q.Message, botUsername)
			out.Message = &m
		}
		return platform.Update{ID: u.UpdateID, Callback: out}, true
	case u.Message != nil:
		m := message(u.Message, botUsername)
		return platform.Update{ID: u.UpdateID, Message: &m}, true
	default:
		return platform.Update{}, false
	}
}

func message(m *tgbotapi.Message, botUsername string) platform.Message {
	out := platform.Message{
		ID:      m.MessageID,
		Text:    m.Text,
		Caption: m.Caption,
		Forwarded: m.ForwardFrom != nil || m.ForwardFromChat != nil ||
			m.ForwardSenderName != "" || m.ForwardDate != 0,
	}
	if m.Chat != nil {
		out.Chat = platform.Chat{ID: m.Chat.ID, Kind: platform.ChatKind(m.Chat.Type), Title: m.Chat.Title}
	}
	if m.From != nil {
		u := user(m.From)
		out.From = &u
	}
	if m.IsCommand() && addressedTo(m.CommandWithAt(), botUsername) {
		out.Command = strings.ToLower(m.Command())
		out.Args = m.CommandArguments()
	}
	return out
}

func addressedTo(cmdWithAt, botUsername string) bool {
	i := strings.IndexByte(cmdWithAt, '@')
	if i < 0 || botUsername == "" {
		return true
	}
	return strings.EqualFold(cmdWithAt[i+1:], botUsername)
}

func user(u *tgbotapi.User) platform.User {
	return platform.User{ID: u.ID, Username: u.UserName, IsBot: u.IsBot}
}
