// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// CallbackReceipt records that a suggestion prompt, identified by
// (chat_id, message_id), has already been answered. A second callback on the
// same prompt finds the receipt and becomes a no-op, so tokens cannot be
// replayed even though they carry no server-side state.
type CallbackReceipt struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	ChatID    int64     `gorm:"not null;uniqueIndex:ux_receipt_chat_message,priority:1"`
	MessageID int       `gorm:"not null;uniqueIndex:ux_receipt_chat_message,priority:2"`
	UserID    int64     `gorm:"not null"`
	Action    string    `gorm:"type:varchar(32);not null"`
	PartyID   uint      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (CallbackReceipt) TableName() string { return "callback_receipts" }
