// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Party model,
// the per-chat directory of named handle groups.
//
// Functions:
//
//   - GetParty(ctx, db, chatID, name) -> *domain.Party, error
//     Case-insensitive lookup by name, or ErrNotFound.
//
//   - GetPartyByID(ctx, db, id) -> *domain.Party, error
//
//   - ListParties(ctx, db, chatID) -> []domain.Party, error
//     All parties of a chat ordered by lower-cased name.
//
//   - CreateParty(ctx, db, chatID, name, members) -> *domain.Party, error
//     Insert-only; ErrDuplicate when the name is taken in the chat.
//
//   - UpsertParty(ctx, db, chatID, name, members) -> *domain.Party, error
//     Last-writer-wins write on the (chat_id, name_key) unique key.
//
//   - DeletePartyByName / DeletePartyByID / DeletePartyGroup / DeleteAllParties
//
// Every write that may create the first party of a chat also ensures the
// chat row exists, inside the same transaction.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/pull-party-bot/internal/domain"
)

// ErrDuplicate indicates a unique-key violation (a party name already taken
// in the chat, or a callback receipt already recorded).
var ErrDuplicate = errors.New("duplicate")

// GetParty fetches a party by chat and case-insensitive name.
func GetParty(ctx context.Context, db *gorm.DB, chatID int64, name string) (*domain.Party, error) {
	var p domain.Party
	err := db.WithContext(ctx).
		Where("chat_id = ? AND name_key = ?", chatID, domain.NameKey(name)).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPartyByID fetches a party by its surrogate id.
func GetPartyByID(ctx context.Context, db *gorm.DB, id uint) (*domain.Party, error) {
	var p domain.Party
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListParties returns every party of a chat ordered by name_key, then id.
func ListParties(ctx context.Context, db *gorm.DB, chatID int64) ([]domain.Party, error) {
	var out []domain.Party
	err := db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("name_key ASC, id ASC").
		Find(&out).Error
	return out, err
}

// CountParties returns the number of parties stored for a chat.
func CountParties(ctx context.Context, db *gorm.DB, chatID int64) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Party{}).
		Where("chat_id = ?", chatID).
		Count(&total).Error
	return total, err
}

// ListPartiesPage returns a page of parties ordered like ListParties.
func ListPartiesPage(ctx context.Context, db *gorm.DB, chatID int64, offset, limit int) ([]domain.Party, error) {
	var out []domain.Party
	err := db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("name_key ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CreateParty inserts a new party. It returns ErrDuplicate if the chat already
// has a party with the same case-insensitive name; the existing row is kept.
func CreateParty(ctx context.Context, db *gorm.DB, chatID int64, name string, members []string) (*domain.Party, error) {
	now := time.Now().UTC()
	p := &domain.Party{
		ChatID:    chatID,
		Name:      name,
		NameKey:   domain.NameKey(name),
		Users:     domain.JoinMembers(members),
		LastUse:   now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := EnsureChat(ctx, tx, chatID); err != nil {
			return err
		}
		return tx.Create(p).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return p, nil
}

// UpsertParty writes the member list of (chatID, name), inserting the row if
// it does not exist. Concurrent writers on the same key resolve as
// last-writer-wins.
func UpsertParty(ctx context.Context, db *gorm.DB, chatID int64, name string, members []string) (*domain.Party, error) {
	now := time.Now().UTC()
	p := &domain.Party{
		ChatID:    chatID,
		Name:      name,
		NameKey:   domain.NameKey(name),
		Users:     domain.JoinMembers(members),
		LastUse:   now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := EnsureChat(ctx, tx, chatID); err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chat_id"}, {Name: "name_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"users", "updated_at"}),
		}).Create(p).Error
	})
	if err != nil {
		return nil, err
	}
	// The returned id is unreliable on the update path for some drivers.
	return GetParty(ctx, db, chatID, name)
}

// TouchParty refreshes LastUse of a party.
func TouchParty(ctx context.Context, db *gorm.DB, id uint, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Party{}).
		Where("id = ?", id).
		UpdateColumn("last_use", at.UTC()).Error
}

// DeletePartyByName removes a party by case-insensitive name and reports
// whether a row was deleted.
func DeletePartyByName(ctx context.Context, db *gorm.DB, chatID int64, name string) (bool, error) {
	res := db.WithContext(ctx).
		Where("chat_id = ? AND name_key = ?", chatID, domain.NameKey(name)).
		Delete(&domain.Party{})
	return res.RowsAffected > 0, res.Error
}

// DeletePartyByID removes a party by id and returns the deleted row, or nil
// when it no longer exists.
func DeletePartyByID(ctx context.Context, db *gorm.DB, id uint) (*domain.Party, error) {
	var deleted *domain.Party
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := GetPartyByID(ctx, tx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&domain.Party{}).Error; err != nil {
			return err
		}
		deleted = p
		return nil
	})
	return deleted, err
}

// DeletePartyGroup removes the party with the given id together with every
// party of the same chat that has exactly the same member list. It returns
// the deleted rows (empty when the id no longer exists).
func DeletePartyGroup(ctx context.Context, db *gorm.DB, id uint) ([]domain.Party, error) {
	var deleted []domain.Party
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := GetPartyByID(ctx, tx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Where("chat_id = ? AND users = ?", p.ChatID, p.Users).
			Order("name_key ASC").
			Find(&deleted).Error; err != nil {
			return err
		}
		return tx.Where("chat_id = ? AND users = ?", p.ChatID, p.Users).
			Delete(&domain.Party{}).Error
	})
	return deleted, err
}

// DeleteAllParties removes every party of a chat and returns the row count.
func DeleteAllParties(ctx context.Context, db *gorm.DB, chatID int64) (int64, error) {
	res := db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&domain.Party{})
	return res.RowsAffected, res.Error
}

// isUniqueViolation detects unique-constraint failures across drivers that
// may not map to gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}
