package model

import "time"

// Clan member roles, highest first.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Clan privacy modes.
const (
	ClanInviteOnly  = "inviteOnly"
	ClanFriendsOnly = "friendsOnly"
)

// Clan invite statuses.
const (
	InvitePending  = "pending"
	InviteAccepted = "accepted"
	InviteRejected = "rejected"
	InviteExpired  = "expired"
)

// Member statuses. Invited users are tracked as pending ClanInvites; a
// ClanMember row only exists once the user is in the clan.
const MemberActive = "active"

// Clan is a named group. Exactly one member holds RoleOwner at all times;
// the engine keeps OwnerID and the owner member row in lockstep.
type Clan struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:32;not null" json:"name"`
	Description string    `gorm:"size:200" json:"description"`
	OwnerID     int64     `gorm:"not null" json:"owner_id"`
	Privacy     string    `gorm:"size:16;default:'inviteOnly'" json:"privacy"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ClanMember links a user to a clan with a role.
type ClanMember struct {
	ClanID   int64     `gorm:"primaryKey;index:idx_member_clan" json:"clan_id"`
	UserID   int64     `gorm:"primaryKey;index:idx_member_user" json:"user_id"`
	Role     string    `gorm:"size:16;default:'member'" json:"role"`
	Status   string    `gorm:"size:16;default:'active'" json:"status"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// ClanInvite is a pending or resolved invitation. At most one pending invite
// per (clan, invitee); the engine enforces this transactionally.
type ClanInvite struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ClanID    int64     `gorm:"index:idx_invite_clan_to;not null" json:"clan_id"`
	FromID    int64     `gorm:"not null" json:"from_id"`
	ToID      int64     `gorm:"index:idx_invite_clan_to;index:idx_invite_to;not null" json:"to_id"`
	Status    string    `gorm:"size:16;default:'pending'" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
