package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/pull-party-bot/internal/domain"
)

func TestCreateReceipt_FirstWinsThenDuplicate(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()

	rec, err := CreateReceipt(ctx, db, 1, 10, 77, "delete_party", 5, time.Hour)
	if err != nil || rec == nil || rec.ID == "" {
		t.Fatalf("CreateReceipt: rec=%v err=%v", rec, err)
	}
	if _, err := CreateReceipt(ctx, db, 1, 10, 78, "delete_alias", 5, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on replay, got %v", err)
	}
	// Another prompt in the same chat is independent.
	if _, err := CreateReceipt(ctx, db, 1, 11, 77, "delete_party", 5, time.Hour); err != nil {
		t.Fatalf("independent prompt: %v", err)
	}
}

func TestCreateReceipt_DuplicateKeepsTransactionUsable(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	if _, err := CreateReceipt(ctx, db, 1, 10, 77, "delete_party", 5, time.Hour); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := CreateReceipt(ctx, tx, 1, 10, 78, "delete_alias", 5, time.Hour); !errors.Is(err, ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
		// Later statements in the same transaction must still run.
		var n int64
		return tx.Model(&domain.CallbackReceipt{}).Count(&n).Error
	})
	if err != nil {
		t.Fatalf("transaction should commit after a skipped duplicate: %v", err)
	}

	rec, err := GetReceipt(ctx, db, 1, 10, time.Now().UTC())
	if err != nil || rec.UserID != 77 {
		t.Fatalf("first receipt must win: rec=%+v err=%v", rec, err)
	}
}

func TestGetReceipt_ExpiredOrMissing(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := GetReceipt(ctx, db, 1, 1, now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing receipt, got %v", err)
	}
	if _, err := CreateReceipt(ctx, db, 1, 1, 2, "delete_alias", 3, time.Minute); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := GetReceipt(ctx, db, 1, 1, now); err != nil {
		t.Fatalf("expected live receipt: %v", err)
	}
	if _, err := GetReceipt(ctx, db, 1, 1, now.Add(2*time.Minute)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired receipt to be hidden, got %v", err)
	}
}

func TestPurgeReceipts(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()

	_, _ = CreateReceipt(ctx, db, 1, 1, 1, "delete_alias", 1, time.Minute)
	_, _ = CreateReceipt(ctx, db, 1, 2, 1, "delete_alias", 1, 24*time.Hour)

	n, err := PurgeReceipts(ctx, db, time.Now().UTC().Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("PurgeReceipts = %d, %v; want 1", n, err)
	}
}
