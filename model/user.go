package model

import "time"

// Rings visibility tiers.
const (
	VisibilityPublic  = "public"
	VisibilityFriends = "friends"
	VisibilityClan    = "clan"
	VisibilityPrivate = "private"
)

// User represents a registered account with its privacy settings.
type User struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string     `gorm:"uniqueIndex;size:32;not null" json:"username"` // normalized lowercase
	DisplayName  string     `gorm:"size:64" json:"display_name"`
	PasswordHash string     `gorm:"size:64;not null" json:"-"`
	PushToken    string     `gorm:"size:128" json:"-"`
	Status       int        `gorm:"default:1" json:"status"` // 0=banned 1=normal

	RingsVisibility     string `gorm:"size:16;default:'friends'" json:"rings_visibility"`
	AllowFriendRequests bool   `gorm:"default:true" json:"allow_friend_requests"`
	AllowClanInvites    bool   `gorm:"default:true" json:"allow_clan_invites"`

	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
	LastLoginIP string     `gorm:"size:45" json:"last_login_ip"`
}

// ValidVisibility reports whether s is a known rings visibility tier.
func ValidVisibility(s string) bool {
	switch s {
	case VisibilityPublic, VisibilityFriends, VisibilityClan, VisibilityPrivate:
		return true
	}
	return false
}
