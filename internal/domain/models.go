// Package domain defines the persistence models for chats and their parties.
// These types are mapped with GORM and form the core data layer of the bot.
// Rows are addressed by key: a Party refers to its Chat through ChatID only.
package domain

import (
	"strings"
	"time"
)

// MaxPartyNameLen is the maximum rune length of a party name.
const MaxPartyNameLen = 50

// Chat represents a platform chat the bot has stored parties for. The row is
// created implicitly on the first party write and is never deleted.
//
// Fields:
//   - ID: platform-assigned chat identifier (primary key, not auto-incremented).
//   - IsRude: display casing mode; when set, dynamic replies are upper-cased.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Chat struct {
	ID        int64     `json:"id"         gorm:"primaryKey;autoIncrement:false"`
	IsRude    bool      `json:"is_rude"    gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Chat.
func (Chat) TableName() string { return "chats" }

// Party is a named, per-chat set of user handles.
//
// Fields:
//   - ID: surrogate primary key, carried by callback tokens.
//   - ChatID: owning chat (foreign key).
//   - Name: display name, case preserved.
//   - NameKey: lower-cased Name; (ChatID, NameKey) is unique.
//   - Users: space-delimited "@handle" list in insertion order.
//   - LastUse: refreshed whenever the party is successfully pulled.
type Party struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	ChatID    int64     `json:"chat_id"    gorm:"not null;index;uniqueIndex:ux_party_chat_name,priority:1"`
	Name      string    `json:"name"       gorm:"type:varchar(50);not null"`
	NameKey   string    `json:"-"          gorm:"type:varchar(50);not null;uniqueIndex:ux_party_chat_name,priority:2"`
	Users     string    `json:"-"          gorm:"type:text;not null"`
	LastUse   time.Time `json:"last_use"   gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Chat only declares the foreign key; it is never loaded.
	Chat *Chat `json:"-" gorm:"foreignKey:ChatID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Party.
func (Party) TableName() string { return "parties" }

// Members returns the party handles in insertion order.
func (p Party) Members() []string {
	return strings.Fields(p.Users)
}

// JoinMembers encodes handles into the stored Users representation.
func JoinMembers(members []string) string {
	return strings.Join(members, " ")
}

// NameKey normalizes a party name for case-insensitive lookups.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
