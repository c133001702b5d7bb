package model

import "time"

// Friend request statuses. Requests are never deleted; terminal statuses
// stay behind as the audit trail.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
	RequestCanceled = "canceled"
)

// FriendRequest is one directed request (from → to). At most one request per
// ordered pair may be pending at a time; the engine enforces this inside the
// same transaction that writes the row.
type FriendRequest struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FromID    int64     `gorm:"index:idx_request_pair;not null" json:"from_id"`
	ToID      int64     `gorm:"index:idx_request_pair;index:idx_request_to;not null" json:"to_id"`
	Status    string    `gorm:"size:16;default:'pending'" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// FriendEdge is one directed half of a friendship. An active friendship is
// always two mirrored rows written in the same transaction; a lone row is a
// corruption state the store contract makes unreachable.
type FriendEdge struct {
	OwnerID    int64     `gorm:"primaryKey" json:"owner_id"`
	FriendID   int64     `gorm:"primaryKey" json:"friend_id"`
	RingsShare bool      `gorm:"default:true" json:"rings_share"`
	CreatedAt  time.Time `json:"created_at"`
}

// BlockedEdge is a directed block. Presence in either direction forbids new
// requests between the pair.
type BlockedEdge struct {
	BlockerID int64     `gorm:"primaryKey" json:"blocker_id"`
	BlockedID int64     `gorm:"primaryKey" json:"blocked_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
