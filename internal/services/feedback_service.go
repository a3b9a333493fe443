// Package services – FeedbackService
//
// This file implements the FeedbackService, which forwards free-form user
// feedback to the developers' chat. Each user is rate limited independently.
package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tbourn/pull-party-bot/internal/platform"
	"github.com/tbourn/pull-party-bot/internal/ratelimit"
)

// FeedbackService composes feedback forwards.
type FeedbackService struct {
	// DevelopChatID receives feedback; zero disables the feature.
	DevelopChatID int64
	// Limiter throttles senders by user id; nil disables throttling.
	Limiter *ratelimit.Keyed
	// MaxRunes clips the forwarded text; zero keeps it whole.
	MaxRunes int
}

// Enabled reports whether feedback has a destination.
func (s *FeedbackService) Enabled() bool { return s != nil && s.DevelopChatID != 0 }

// Compose validates feedback from user in chat and returns the message to
// forward. It fails with ErrEmptyArguments for blank text and ErrRateLimited
// when the sender exceeded their quota.
func (s *FeedbackService) Compose(from platform.User, chat platform.Chat, text string) (platform.OutMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return platform.OutMessage{}, ErrEmptyArguments
	}
	if s.Limiter != nil && !s.Limiter.Allow(strconv.FormatInt(from.ID, 10)) {
		return platform.OutMessage{}, ErrRateLimited
	}
	if s.MaxRunes > 0 {
		if r := []rune(text); len(r) > s.MaxRunes {
			text = string(r[:s.MaxRunes])
		}
	}

	sender := from.Username
	if sender == "" {
		sender = "id" + strconv.FormatInt(from.ID, 10)
	}
	title := chat.Title
	if title == "" {
		title = "private chat"
	}
	return platform.OutMessage{
		ChatID: s.DevelopChatID,
		Text:   fmt.Sprintf("New #feedback from @%s in %q:\n\n%s", sender, title, text),
	}, nil
}
