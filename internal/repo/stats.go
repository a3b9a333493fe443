package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/pull-party-bot/internal/domain"
)

// PartiesStats returns the number of parties in a chat and the latest change
// among them, for ETags. A change is either an update or a pull (last_use).
// lastChange is nil for an empty chat.
func PartiesStats(ctx context.Context, db *gorm.DB, chatID int64) (count int64, lastChange *time.Time, err error) {
	scoped := func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.Party{}).Where("chat_id = ?", chatID)
	}
	if err = scoped().Count(&count).Error; err != nil || count == 0 {
		return 0, nil, err
	}

	// MAX() comes back as TEXT from SQLite; order instead.
	var newest domain.Party
	if err = scoped().Select("updated_at").Order("updated_at DESC").Limit(1).Take(&newest).Error; err != nil {
		return 0, nil, err
	}
	var pulled domain.Party
	if err = scoped().Select("last_use").Order("last_use DESC").Limit(1).Take(&pulled).Error; err != nil {
		return 0, nil, err
	}

	latest := newest.UpdatedAt
	if pulled.LastUse.After(latest) {
		latest = pulled.LastUse
	}
	return count, &latest, nil
}
