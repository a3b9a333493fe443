package bot

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/pull-party-bot/internal/platform"
	"github.com/tbourn/pull-party-bot/internal/repo"
	"github.com/tbourn/pull-party-bot/internal/services"
	"github.com/tbourn/pull-party-bot/internal/templates"
)

// ----- Fake platform client -----

type answer struct {
	id   string
	text string
}

type deletion struct {
	chatID    int64
	messageID int
}

type fakeClient struct {
	mu       sync.Mutex
	admins   []platform.Administrator
	adminErr error
	sent     []platform.OutMessage
	deleted  []deletion
	answers  []answer
	nextID   int
}

func (f *fakeClient) GetAdministrators(ctx context.Context, chatID int64) ([]platform.Administrator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.admins, f.adminErr
}

func (f *fakeClient) SendMessage(ctx context.Context, msg platform.OutMessage) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, msg)
	return 1000 + f.nextID, nil
}

func (f *fakeClient) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, deletion{chatID, messageID})
	return nil
}

func (f *fakeClient) AnswerCallback(ctx context.Context, callbackID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, answer{callbackID, text})
	return nil
}

// take returns and clears the sent messages.
func (f *fakeClient) take() []platform.OutMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.sent
	f.sent = nil
	return out
}

// ----- Fixtures -----

var (
	groupChat   = platform.Chat{ID: -200, Kind: platform.ChatSupergroup, Title: "Crew"}
	privateChat = platform.Chat{ID: 77, Kind: platform.ChatPrivate}

	admin  = platform.User{ID: 1, Username: "boss_one"}
	member = platform.User{ID: 2, Username: "member_two"}
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("bot_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestRouter(t *testing.T, opts ...Option) (*Router, *fakeClient) {
	t.Helper()
	client := &fakeClient{admins: []platform.Administrator{
		{UserID: admin.ID, Username: admin.Username, Status: "creator"},
		{UserID: 9, Username: "CrewHelperBot", Status: "administrator"},
	}}
	db := newTestDB(t)
	parties := services.NewPartyService(db, services.Store{}, client)
	chats := services.NewChatService(db)
	opts = append([]Option{WithUsername("PullPartyBot")}, opts...)
	return NewRouter(client, parties, chats, templates.Default(), opts...), client
}

// cmd builds a command update.
func cmd(chat platform.Chat, from platform.User, id int, name, args string) platform.Update {
	u := from
	return platform.Update{ID: id, Message: &platform.Message{
		ID: id, Chat: chat, From: &u, Text: "/" + name + " " + args, Command: name, Args: args,
	}}
}

// plain builds an ordinary message update.
func plain(chat platform.Chat, from platform.User, id int, body string) platform.Update {
	u := from
	return platform.Update{ID: id, Message: &platform.Message{ID: id, Chat: chat, From: &u, Text: body}}
}

func mustHandle(t *testing.T, r *Router, u platform.Update) {
	t.Helper()
	if err := r.Handle(context.Background(), u); err != nil {
		t.Fatalf("Handle(%+v): %v", u.Message, err)
	}
}
