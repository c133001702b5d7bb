// Package store defines the transactional contract the social engines are
// written against. Every multi-record mutation that must be visible
// atomically (both halves of a friend edge, an ownership transfer) is one
// call inside one Atomic scope; no partial state is observable to a
// concurrent reader.
package store

import (
	"context"

	"github.com/pulsefit/pulsefit-server/model"
)

// Tx exposes the relationship and membership primitives available inside a
// single unit of work. Reads return (nil, nil) when the record is absent;
// errors are classified apperr values.
type Tx interface {
	// Friendship
	ReadEdge(ownerID, friendID int64) (*model.FriendEdge, error)
	// WriteEdgePair creates both directed halves with one creation time.
	WriteEdgePair(a, b int64) error
	// DeleteEdgePair removes both halves; deleting an absent pair is a no-op.
	DeleteEdgePair(a, b int64) error
	SetEdgeShare(ownerID, friendID int64, share bool) error

	ReadPendingRequest(fromID, toID int64) (*model.FriendRequest, error)
	// WriteRequest inserts a new request (ID zero) or updates an existing one.
	WriteRequest(req *model.FriendRequest) error

	ReadBlock(blockerID, blockedID int64) (*model.BlockedEdge, error)
	WriteBlock(blockerID, blockedID int64) error
	DeleteBlock(blockerID, blockedID int64) error

	// Clan
	ReadClan(clanID int64) (*model.Clan, error)
	WriteClan(clan *model.Clan) error
	ReadMember(clanID, userID int64) (*model.ClanMember, error)
	WriteMember(m *model.ClanMember) error
	DeleteMember(clanID, userID int64) error
	ReadPendingInvite(clanID, toID int64) (*model.ClanInvite, error)
	WriteInvite(inv *model.ClanInvite) error
	// TransferOwnership demotes from to admin, promotes to to owner and
	// repoints the clan's owner id, all in the enclosing transaction.
	TransferOwnership(clanID, fromID, toID int64) error
}

// Store scopes units of work against the backing database.
type Store interface {
	// Atomic runs fn inside one transaction. All writes commit together or
	// not at all; conflicting writers are serialized by the backing store.
	Atomic(ctx context.Context, fn func(Tx) error) error
}
