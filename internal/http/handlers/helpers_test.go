package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tbourn/pull-party-bot/internal/domain"
	"github.com/tbourn/pull-party-bot/internal/platform"
)

type fakeLister struct {
	parties  []domain.Party
	statsErr error
	listErr  error
	updated  *time.Time

	gotPage, gotSize int
}

func (f *fakeLister) ListPage(ctx context.Context, chatID int64, page, pageSize int) ([]domain.Party, int64, error) {
	f.gotPage, f.gotSize = page, pageSize
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	start := (page - 1) * pageSize
	if start > len(f.parties) {
		start = len(f.parties)
	}
	end := start + pageSize
	if end > len(f.parties) {
		end = len(f.parties)
	}
	return f.parties[start:end], int64(len(f.parties)), nil
}

func (f *fakeLister) Stats(ctx context.Context, chatID int64) (int64, *time.Time, error) {
	return int64(len(f.parties)), f.updated, f.statsErr
}

// fakeDecoder treats the body "ignored" as an unhandled kind and "bad" as
// malformed.
type fakeDecoder struct{}

func (fakeDecoder) DecodeWebhook(r *http.Request) (platform.Update, bool, error) {
	buf := new(strings.Builder)
	if r.Body != nil {
		_, _ = io.Copy(buf, r.Body)
	}
	switch buf.String() {
	case "bad":
		return platform.Update{}, false, errors.New("invalid character")
	case "ignored":
		return platform.Update{}, false, nil
	}
	return platform.Update{ID: 7}, true, nil
}
