// Package services – store adapter
//
// PartyRepo is the Directory Store contract consumed by PartyService. Store
// adapts the repo package's free functions to it.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/pull-party-bot/internal/domain"
	"github.com/tbourn/pull-party-bot/internal/repo"
)

// PartyRepo defines the repository contract required by PartyService. Every
// method is a single atomic operation and accepts a transaction-bound handle.
type PartyRepo interface {
	GetParty(ctx context.Context, db *gorm.DB, chatID int64, name string) (*domain.Party, error)
	GetPartyByID(ctx context.Context, db *gorm.DB, id uint) (*domain.Party, error)
	ListParties(ctx context.Context, db *gorm.DB, chatID int64) ([]domain.Party, error)
	CreateParty(ctx context.Context, db *gorm.DB, chatID int64, name string, members []string) (*domain.Party, error)
	UpsertParty(ctx context.Context, db *gorm.DB, chatID int64, name string, members []string) (*domain.Party, error)
	TouchParty(ctx context.Context, db *gorm.DB, id uint, at time.Time) error
	DeletePartyByName(ctx context.Context, db *gorm.DB, chatID int64, name string) (bool, error)
	DeletePartyByID(ctx context.Context, db *gorm.DB, id uint) (*domain.Party, error)
	DeletePartyGroup(ctx context.Context, db *gorm.DB, id uint) ([]domain.Party, error)
	DeleteAllParties(ctx context.Context, db *gorm.DB, chatID int64) (int64, error)
}

// Store proxies the repo package.
type Store struct{}

var _ PartyRepo = Store{}

// GetParty proxies repo.GetParty.
func (Store) GetParty(ctx context.Context, db *gorm.DB, chatID int64, name string) (*domain.Party, error) {
	return repo.GetParty(ctx, db, chatID, name)
}

// GetPartyByID proxies repo.GetPartyByID.
func (Store) GetPartyByID(ctx context.Context, db *gorm.DB, id uint) (*domain.Party, error) {
	return repo.GetPartyByID(ctx, db, id)
}

// ListParties proxies repo.ListParties.
func (Store) ListParties(ctx context.Context, db *gorm.DB, chatID int64) ([]domain.Party, error) {
	return repo.ListParties(ctx, db, chatID)
}

// CreateParty proxies repo.CreateParty.
func (Store) CreateParty(ctx context.Context, db *gorm.DB, chatID int64, name string, members []string) (*domain.Party, error) {
	return repo.CreateParty(ctx, db, chatID, name, members)
}

// UpsertParty proxies repo.UpsertParty.
func (Store) UpsertParty(ctx context.Context, db *gorm.DB, chatID int64, name string, members []string) (*domain.Party, error) {
	return repo.UpsertParty(ctx, db, chatID, name, members)
}

// TouchParty proxies repo.TouchParty.
func (Store) TouchParty(ctx context.Context, db *gorm.DB, id uint, at time.Time) error {
	return repo.TouchParty(ctx, db, id, at)
}

// DeletePartyByName proxies repo.DeletePartyByName.
func (Store) DeletePartyByName(ctx context.Context, db *gorm.DB, chatID int64, name string) (bool, error) {
	return repo.DeletePartyByName(ctx, db, chatID, name)
}

// DeletePartyByID proxies repo.DeletePartyByID.
func (Store) DeletePartyByID(ctx context.Context, db *gorm.DB, id uint) (*domain.Party, error) {
	return repo.DeletePartyByID(ctx, db, id)
}

// DeletePartyGroup proxies repo.DeletePartyGroup.
func (Store) DeletePartyGroup(ctx context.Context, db *gorm.DB, id uint) ([]domain.Party, error) {
	return repo.DeletePartyGroup(ctx, db, id)
}

// DeleteAllParties proxies repo.DeleteAllParties.
func (Store) DeleteAllParties(ctx context.Context, db *gorm.DB, chatID int64) (int64, error) {
	return repo.DeleteAllParties(ctx, db, chatID)
}
