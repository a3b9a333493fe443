package services

import (
	"context"
	"errors"
	"testing"
)

func TestChatService_SetRude(t *testing.T) {
	s := NewChatService(newTestDB(t))
	ctx := context.Background()

	if rude, err := s.IsRude(ctx, 1); err != nil || rude {
		t.Fatalf("new chat should be polite: %v %v", rude, err)
	}

	cases := []struct {
		arg         string
		wantOn      bool
		wantChanged bool
	}{
		{"on", true, true},
		{"ON", true, false},
		{" off ", false, true},
		{"off", false, false},
	}
	for _, tc := range cases {
		on, changed, err := s.SetRude(ctx, 1, tc.arg)
		if err != nil {
			t.Fatalf("SetRude(%q): %v", tc.arg, err)
		}
		if on != tc.wantOn || changed != tc.wantChanged {
			t.Fatalf("SetRude(%q) = (%v, %v); want (%v, %v)", tc.arg, on, changed, tc.wantOn, tc.wantChanged)
		}
	}

	if _, _, err := s.SetRude(ctx, 1, "maybe"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, _, err := s.SetRude(ctx, 1, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty arg, got %v", err)
	}
}
