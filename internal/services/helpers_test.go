package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/pull-party-bot/internal/platform"
	"github.com/tbourn/pull-party-bot/internal/repo"
)

// ----- Fakes -----

type fakeAdmins struct {
	list  []platform.Administrator
	err   error
	calls int
}

func (f *fakeAdmins) GetAdministrators(ctx context.Context, chatID int64) ([]platform.Administrator, error) {
	f.calls++
	return f.list, f.err
}

// ----- Fixtures -----

var (
	group   = platform.Chat{ID: -100, Kind: platform.ChatSupergroup, Title: "Crew"}
	private = platform.Chat{ID: 55, Kind: platform.ChatPrivate}

	adminID  int64 = 1
	memberID int64 = 2

	fixedNow = time.Date(2030, 5, 6, 7, 8, 9, 0, time.UTC)
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("svc_%d.db", time.Now().UnixNano()))
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

func newTestService(t *testing.T) (*PartyService, *fakeAdmins) {
	t.Helper()
	admins := &fakeAdmins{list: []platform.Administrator{
		{UserID: adminID, Username: "boss_one", Status: "creator"},
		{UserID: 3, Username: "GroupHelperBot", Status: "administrator"},
		{UserID: 4, Username: "", Status: "administrator"},
		{UserID: 5, Username: "deputy2", Status: "administrator"},
	}}
	s := NewPartyService(newTestDB(t), Store{}, admins)
	s.Now = func() time.Time { return fixedNow }
	return s, admins
}

func mustCreate(t *testing.T, s *PartyService, chatID int64, args ...string) {
	t.Helper()
	if _, err := s.Mutate(context.Background(), chatID, ChangeCreate, args); err != nil {
		t.Fatalf("create %v: %v", args, err)
	}
}
