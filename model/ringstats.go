package model

import (
	"time"

	"gorm.io/datatypes"
)

// RingDateLayout is the canonical key format for a stats day.
const RingDateLayout = "2006-01-02"

// RingStats holds one user's derived fitness metrics for one day. Visibility
// is never stored here; it is resolved per viewer by the privacy resolver.
type RingStats struct {
	UserID         int64          `gorm:"primaryKey" json:"user_id"`
	Date           string         `gorm:"primaryKey;size:10" json:"date"`
	CaloriesBurned int            `gorm:"default:0" json:"calories_burned"`
	Steps          int            `gorm:"default:0" json:"steps"`
	WorkoutMinutes int            `gorm:"default:0" json:"workout_minutes"`
	Goals          datatypes.JSON `json:"goals"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}
