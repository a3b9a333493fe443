// Package services – suggestion callbacks
//
// A suggestion prompt carries delete buttons. Pressing one decodes the
// token, re-checks the presser's administrator rights and applies the delete
// against the current store state. The first accepted press records a receipt
// for the prompt message; later presses on the same prompt are no-ops.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/pull-party-bot/internal/callback"
	"github.com/tbourn/pull-party-bot/internal/domain"
	"github.com/tbourn/pull-party-bot/internal/platform"
	"github.com/tbourn/pull-party-bot/internal/repo"
)

// CallbackResult describes the effect of a suggestion button press.
type CallbackResult struct {
	Action callback.Action
	// Deleted holds the removed rows; empty when the party was already gone.
	Deleted []domain.Party
	// Replayed is set when the prompt had already been answered.
	Replayed bool
}

// ApplySuggestion executes the action encoded in token for a press by userID
// on prompt messageID in chat.
//
// Errors: ErrDecodeFailure for malformed tokens, ErrPermissionDenied or
// ErrExternalFetchFailure from the administrator check, or a storage error.
// A stale id, or an id belonging to another chat, is a successful no-op.
func (s *PartyService) ApplySuggestion(ctx context.Context, chat platform.Chat, userID int64, messageID int, token string) (*CallbackResult, error) {
	ctx, span := s.tracer().Start(ctx, "ApplySuggestion",
		trace.WithAttributes(
			attribute.Int64("chat.id", chat.ID),
			attribute.Int("message.id", messageID),
		),
	)
	defer span.End()

	data, err := callback.Decode(token)
	if err != nil {
		return nil, err
	}
	res := &CallbackResult{Action: data.Action}
	span.SetAttributes(attribute.String("action", data.Action.String()))

	_, err = repo.GetReceipt(ctx, s.DB, chat.ID, messageID, s.now())
	switch {
	case err == nil:
		res.Replayed = true
		return res, nil
	case !errors.Is(err, repo.ErrNotFound):
		return nil, err
	}

	if err := s.RequireAdmin(ctx, chat, userID); err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := repo.CreateReceipt(ctx, tx, chat.ID, messageID, userID, data.Action.String(), data.PartyID, s.ReceiptTTL)
		if errors.Is(err, repo.ErrDuplicate) {
			res.Replayed = true
			return nil
		}
		if err != nil {
			return err
		}

		p, err := s.Repo.GetPartyByID(ctx, tx, data.PartyID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if p.ChatID != chat.ID {
			return nil
		}

		switch data.Action {
		case callback.ActionDeleteAlias:
			deleted, err := s.Repo.DeletePartyByID(ctx, tx, p.ID)
			if err != nil {
				return err
			}
			if deleted != nil {
				res.Deleted = []domain.Party{*deleted}
			}
		case callback.ActionDeleteParty:
			deleted, err := s.Repo.DeletePartyGroup(ctx, tx, p.ID)
			if err != nil {
				return err
			}
			res.Deleted = deleted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// PurgeReceipts removes expired prompt receipts.
func (s *PartyService) PurgeReceipts(ctx context.Context) (int64, error) {
	return repo.PurgeReceipts(ctx, s.DB, s.now())
}
