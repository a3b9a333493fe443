// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Chat model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/pull-party-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// EnsureChat inserts the chat row if it does not exist yet. Existing rows are
// left untouched.
func EnsureChat(ctx context.Context, db *gorm.DB, chatID int64) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Chat{ID: chatID, CreatedAt: now, UpdatedAt: now}).Error
}

// GetChat fetches a chat by its platform ID, or ErrNotFound.
func GetChat(ctx context.Context, db *gorm.DB, chatID int64) (*domain.Chat, error) {
	var c domain.Chat
	if err := db.WithContext(ctx).Where("id = ?", chatID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// IsRude reports the rude flag of a chat. Unknown chats are not rude.
func IsRude(ctx context.Context, db *gorm.DB, chatID int64) (bool, error) {
	c, err := GetChat(ctx, db, chatID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return c.IsRude, nil
}

// SetRude stores the rude flag, creating the chat row when needed. It reports
// whether the stored value changed.
func SetRude(ctx context.Context, db *gorm.DB, chatID int64, rude bool) (bool, error) {
	changed := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := EnsureChat(ctx, tx, chatID); err != nil {
			return err
		}
		res := tx.Model(&domain.Chat{}).
			Where("id = ? AND is_rude <> ?", chatID, rude).
			Update("is_rude", rude)
		if res.Error != nil {
			return res.Error
		}
		changed = res.RowsAffected > 0
		return nil
	})
	return changed, err
}
