// Package privacy resolves whether one user may see another's ring stats,
// and gates inbound friend requests and clan invites on the target's
// settings. Decisions are always computed per viewer; nothing is stored on
// the stats themselves.
package privacy

import (
	"context"
	"errors"

	"github.com/pulsefit/pulsefit-server/apperr"
	"github.com/pulsefit/pulsefit-server/model"
	"github.com/pulsefit/pulsefit-server/usercache"
	"gorm.io/gorm"
)

// Resolver answers visibility questions against the current graph state.
type Resolver struct {
	db    *gorm.DB
	users *usercache.Cache
}

// NewResolver creates a resolver reading through the user cache.
func NewResolver(db *gorm.DB, users *usercache.Cache) *Resolver {
	return &Resolver{db: db, users: users}
}

// CanViewRings decides whether viewer may see target's ring stats under the
// target's visibility tier.
func (r *Resolver) CanViewRings(ctx context.Context, viewerID, targetID int64) (bool, error) {
	if viewerID == targetID {
		return true, nil
	}
	target, err := r.users.Get(ctx, targetID)
	if err != nil {
		return false, err
	}

	switch target.RingsVisibility {
	case model.VisibilityPublic:
		return true, nil
	case model.VisibilityPrivate:
		return false, nil
	case model.VisibilityFriends:
		var edge model.FriendEdge
		err := r.db.WithContext(ctx).
			Where("owner_id = ? AND friend_id = ?", viewerID, targetID).
			First(&edge).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		if err != nil {
			return false, apperr.Wrap(apperr.KindUnavailable, "read edge", err)
		}
		return edge.RingsShare, nil
	case model.VisibilityClan:
		return r.shareClan(ctx, viewerID, targetID)
	}
	return false, nil
}

// shareClan reports whether both users are active members of at least one
// common clan. First match wins; no ordering across clans is guaranteed.
func (r *Resolver) shareClan(ctx context.Context, a, b int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Table("clan_members AS va").
		Joins("JOIN clan_members vb ON va.clan_id = vb.clan_id").
		Where("va.user_id = ? AND vb.user_id = ? AND va.status = ? AND vb.status = ?",
			a, b, model.MemberActive, model.MemberActive).
		Limit(1).
		Count(&n).Error
	if err != nil {
		return false, apperr.Wrap(apperr.KindUnavailable, "shared clan lookup", err)
	}
	return n > 0, nil
}

// CanSendFriendRequest reports whether target accepts friend requests.
func (r *Resolver) CanSendFriendRequest(ctx context.Context, targetID int64) (bool, error) {
	target, err := r.users.Get(ctx, targetID)
	if err != nil {
		return false, err
	}
	return target.AllowFriendRequests, nil
}

// CanSendClanInvite reports whether target accepts clan invites.
func (r *Resolver) CanSendClanInvite(ctx context.Context, targetID int64) (bool, error) {
	target, err := r.users.Get(ctx, targetID)
	if err != nil {
		return false, err
	}
	return target.AllowClanInvites, nil
}
