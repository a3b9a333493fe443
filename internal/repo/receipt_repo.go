// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// CallbackReceipt model used to make suggestion prompts single-use.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/pull-party-bot/internal/domain"
)

// GetReceipt returns the non-expired receipt for a prompt message or ErrNotFound.
func GetReceipt(ctx context.Context, db *gorm.DB, chatID int64, messageID int, now time.Time) (*domain.CallbackReceipt, error) {
	var rec domain.CallbackReceipt
	err := db.WithContext(ctx).
		Where("chat_id = ? AND message_id = ? AND expires_at > ?", chatID, messageID, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateReceipt records the first answer to a prompt message and returns
// ErrDuplicate when the prompt was already answered. A duplicate is skipped
// with ON CONFLICT DO NOTHING, so an enclosing transaction stays usable on
// Postgres.
func CreateReceipt(ctx context.Context, db *gorm.DB, chatID int64, messageID int, userID int64, action string, partyID uint, ttl time.Duration) (*domain.CallbackReceipt, error) {
	now := time.Now().UTC()
	rec := &domain.CallbackReceipt{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		MessageID: messageID,
		UserID:    userID,
		Action:    action,
		PartyID:   partyID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	res := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	switch {
	case res.Error != nil && isUniqueViolation(res.Error):
		return nil, ErrDuplicate
	case res.Error != nil:
		return nil, res.Error
	case res.RowsAffected == 0:
		return nil, ErrDuplicate
	}
	return rec, nil
}

// PurgeReceipts deletes receipts that expired at or before now.
func PurgeReceipts(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.CallbackReceipt{})
	return res.RowsAffected, res.Error
}
