package repo

import (
	"context"
	"errors"
	"testing"
)

func TestEnsureChat_Idempotent(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()

	if err := EnsureChat(ctx, db, 9); err != nil {
		t.Fatalf("EnsureChat: %v", err)
	}
	if _, err := SetRude(ctx, db, 9, true); err != nil {
		t.Fatalf("SetRude: %v", err)
	}
	// A second EnsureChat must not reset existing attributes.
	if err := EnsureChat(ctx, db, 9); err != nil {
		t.Fatalf("EnsureChat again: %v", err)
	}
	rude, err := IsRude(ctx, db, 9)
	if err != nil || !rude {
		t.Fatalf("expected rude to survive EnsureChat, got %v %v", rude, err)
	}
}

func TestGetChat_NotFound(t *testing.T) {
	db := newTestDB(t, true)
	if _, err := GetChat(context.Background(), db, 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIsRude_UnknownChatIsPolite(t *testing.T) {
	db := newTestDB(t, true)
	rude, err := IsRude(context.Background(), db, 1)
	if err != nil || rude {
		t.Fatalf("expected (false, nil), got (%v, %v)", rude, err)
	}
}

func TestSetRude_ReportsChange(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()

	changed, err := SetRude(ctx, db, 3, true)
	if err != nil || !changed {
		t.Fatalf("first switch on: changed=%v err=%v", changed, err)
	}
	changed, err = SetRude(ctx, db, 3, true)
	if err != nil || changed {
		t.Fatalf("repeat switch on should report no change: changed=%v err=%v", changed, err)
	}
	changed, err = SetRude(ctx, db, 3, false)
	if err != nil || !changed {
		t.Fatalf("switch off: changed=%v err=%v", changed, err)
	}
	// A never-seen chat switched off is already off.
	changed, err = SetRude(ctx, db, 4, false)
	if err != nil || changed {
		t.Fatalf("new chat switched off: changed=%v err=%v", changed, err)
	}
}

func TestIsRude_Error_NoTable(t *testing.T) {
	db := newTestDB(t, false)
	if _, err := IsRude(context.Background(), db, 1); err == nil {
		t.Fatalf("expected error when table missing")
	}
}
