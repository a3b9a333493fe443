// Package services – ChatService
//
// This file implements the ChatService, which manages per-chat settings. The
// only setting today is rude mode, under which dynamic replies are rendered in
// upper case.
package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/pull-party-bot/internal/repo"
)

// ChatService provides chat-level settings.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewChatService constructs a ChatService.
func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{DB: db}
}

// IsRude reports whether rude mode is on for chatID.
func (s *ChatService) IsRude(ctx context.Context, chatID int64) (bool, error) {
	return repo.IsRude(ctx, s.DB, chatID)
}

// SetRude switches rude mode according to arg ("on" or "off", any case).
// It returns the requested state and whether the stored value changed.
func (s *ChatService) SetRude(ctx context.Context, chatID int64, arg string) (on, changed bool, err error) {
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "SetRude",
		trace.WithAttributes(
			attribute.Int64("chat.id", chatID),
			attribute.String("arg", arg),
		),
	)
	defer span.End()

	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "on":
		on = true
	case "off":
		on = false
	default:
		return false, false, ErrInvalidArgument
	}
	changed, err = repo.SetRude(ctx, s.DB, chatID, on)
	return on, changed, err
}
