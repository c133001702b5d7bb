package model

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is an append-only record produced by the fan-out worker.
// DedupeKey carries the (event, recipient) identity so replays from an
// at-least-once trigger collapse onto the same row.
type Notification struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64          `gorm:"index:idx_notification_user;not null" json:"user_id"`
	Type      string         `gorm:"size:48;not null" json:"type"`
	Title     string         `gorm:"size:64" json:"title"`
	Body      string         `gorm:"size:200" json:"body"`
	Data      datatypes.JSON `json:"data"`
	Read      bool           `gorm:"default:false" json:"read"`
	DedupeKey string         `gorm:"uniqueIndex;size:128;not null" json:"-"`
	CreatedAt time.Time      `gorm:"index:idx_notification_created;autoCreateTime" json:"created_at"`
}
