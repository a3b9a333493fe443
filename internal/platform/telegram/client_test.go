package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tbourn/pull-party-bot/internal/platform"
)

type fakeAPI struct {
	admins   []tgbotapi.ChatMember
	adminErr error
	delay    time.Duration

	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeAPI) GetChatAdministrators(cfg tgbotapi.ChatAdministratorsConfig) ([]tgbotapi.ChatMember, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.admins, f.adminErr
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: 99}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func newTestClient(f *fakeAPI, timeout time.Duration) *Client {
	return &Client{bot: &tgbotapi.BotAPI{}, api: f, username: "PartyBot", timeout: timeout}
}

func TestGetAdministrators_MapsMembers(t *testing.T) {
	f := &fakeAPI{admins: []tgbotapi.ChatMember{
		{User: &tgbotapi.User{ID: 1, UserName: "alice"}, Status: "creator"},
		{User: nil, Status: "administrator"},
		{User: &tgbotapi.User{ID: 2, UserName: "helper_bot", IsBot: true}, Status: "administrator"},
	}}
	got, err := newTestClient(f, 0).GetAdministrators(context.Background(), -100)
	if err != nil {
		t.Fatalf("GetAdministrators: %v", err)
	}
	if len(got) != 2 || got[0].Username != "alice" || got[0].UserID != 1 || got[0].Status != "creator" {
		t.Fatalf("unexpected admins: %+v", got)
	}
}

func TestGetAdministrators_Error(t *testing.T) {
	f := &fakeAPI{adminErr: errors.New("boom")}
	if _, err := newTestClient(f, 0).GetAdministrators(context.Background(), 1); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGetAdministrators_BoundedWait(t *testing.T) {
	f := &fakeAPI{delay: 200 * time.Millisecond}
	start := time.Now()
	_, err := newTestClient(f, 20*time.Millisecond).GetAdministrators(context.Background(), 1)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 150*time.Millisecond {
		t.Fatalf("call was not bounded")
	}
}

func TestSendMessage_BuildsKeyboard(t *testing.T) {
	f := &fakeAPI{}
	id, err := newTestClient(f, time.Second).SendMessage(context.Background(), platform.OutMessage{
		ChatID:    5,
		Text:      "hi",
		ParseMode: platform.ParseMarkdown,
		ReplyTo:   7,
		Keyboard:  [][]platform.Button{{{Label: "@team", Data: `{"a":1,"id":3}`}}},
	})
	if err != nil || id != 99 {
		t.Fatalf("SendMessage = %d, %v", id, err)
	}
	cfg, ok := f.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("unexpected chattable %T", f.sent[0])
	}
	if cfg.ChatID != 5 || cfg.ReplyToMessageID != 7 || cfg.ParseMode != "Markdown" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	kb, ok := cfg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(kb.InlineKeyboard) != 1 || kb.InlineKeyboard[0][0].Text != "@team" {
		t.Fatalf("unexpected keyboard: %#v", cfg.ReplyMarkup)
	}
	if data := kb.InlineKeyboard[0][0].CallbackData; data == nil || *data != `{"a":1,"id":3}` {
		t.Fatalf("unexpected callback data: %v", data)
	}
}

func TestDeleteAnswerAndCommands_UseRequest(t *testing.T) {
	f := &fakeAPI{}
	c := newTestClient(f, time.Second)
	ctx := context.Background()
	if err := c.DeleteMessage(ctx, 1, 2); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if err := c.AnswerCallback(ctx, "cb", "done"); err != nil {
		t.Fatalf("AnswerCallback: %v", err)
	}
	if err := c.SetCommands(ctx, []platform.Command{{Name: "list", Description: "show"}}); err != nil {
		t.Fatalf("SetCommands: %v", err)
	}
	if len(f.requests) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(f.requests))
	}
	if _, ok := f.requests[0].(tgbotapi.DeleteMessageConfig); !ok {
		t.Fatalf("first request should delete, got %T", f.requests[0])
	}
	if cb, ok := f.requests[1].(tgbotapi.CallbackConfig); !ok || cb.CallbackQueryID != "cb" || cb.Text != "done" {
		t.Fatalf("unexpected callback config %#v", f.requests[1])
	}
}

func commandMessage(text string, cmdLen int) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 10,
		Text:      text,
		Chat:      &tgbotapi.Chat{ID: -42, Type: "supergroup", Title: "Crew"},
		From:      &tgbotapi.User{ID: 7, UserName: "alice"},
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}
}

func TestConvert_Command(t *testing.T) {
	u, ok := Convert(tgbotapi.Update{UpdateID: 1, Message: commandMessage("/Create@PartyBot team @alice", 16)}, "partybot")
	if !ok || u.Message == nil {
		t.Fatalf("expected message update")
	}
	m := u.Message
	if m.Command != "create" || m.Args != "team @alice" {
		t.Fatalf("unexpected command parse: %q %q", m.Command, m.Args)
	}
	if m.Chat.ID != -42 || m.Chat.Kind != platform.ChatSupergroup || m.From == nil || m.From.Username != "alice" {
		t.Fatalf("unexpected message: %+v", m)
	}
}

func TestConvert_CommandForOtherBot(t *testing.T) {
	u, _ := Convert(tgbotapi.Update{Message: commandMessage("/list@OtherBot", 14)}, "PartyBot")
	if u.Message.Command != "" {
		t.Fatalf("command for another bot must be ignored, got %q", u.Message.Command)
	}
}

func TestConvert_ForwardedAndCallback(t *testing.T) {
	fwd := &tgbotapi.Message{Text: "@team", Chat: &tgbotapi.Chat{ID: 1, Type: "group"}, ForwardFrom: &tgbotapi.User{ID: 3}}
	u, _ := Convert(tgbotapi.Update{Message: fwd}, "")
	if !u.Message.Forwarded {
		t.Fatalf("forwarded flag not set")
	}

	cb := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "q1",
		From:    &tgbotapi.User{ID: 9},
		Data:    `{"a":2,"id":1}`,
		Message: &tgbotapi.Message{MessageID: 4, Chat: &tgbotapi.Chat{ID: 1, Type: "group"}},
	}}
	u, ok := Convert(cb, "")
	if !ok || u.Callback == nil || u.Callback.From.ID != 9 || u.Callback.Message == nil || u.Callback.Message.ID != 4 {
		t.Fatalf("unexpected callback conversion: %+v", u.Callback)
	}

	if _, ok := Convert(tgbotapi.Update{}, ""); ok {
		t.Fatalf("empty update should be ignored")
	}
}

func TestDecodeWebhook(t *testing.T) {
	c := newTestClient(&fakeAPI{}, 0)
	body := `{"update_id":5,"message":{"message_id":1,"date":0,"chat":{"id":3,"type":"private"},"text":"@team"}}`
	r := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(body))

	u, ok, err := c.DecodeWebhook(r)
	if err != nil || !ok {
		t.Fatalf("DecodeWebhook: ok=%v err=%v", ok, err)
	}
	if u.ID != 5 || u.Message.Text != "@team" || u.Message.Chat.Kind != platform.ChatPrivate {
		t.Fatalf("unexpected update: %+v", u.Message)
	}

	bad := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader("{"))
	if _, _, err := c.DecodeWebhook(bad); err == nil {
		t.Fatalf("expected decode error")
	}
}
