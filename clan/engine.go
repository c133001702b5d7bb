// Package clan implements clan membership: invites, the role hierarchy and
// atomic ownership transfer. Exactly one member holds the owner role at any
// observable moment.
package clan

import (
	"context"

	"github.com/pulsefit/pulsefit-server/apperr"
	"github.com/pulsefit/pulsefit-server/model"
	"github.com/pulsefit/pulsefit-server/notify"
	"github.com/pulsefit/pulsefit-server/store"
	"github.com/pulsefit/pulsefit-server/usercache"
	"go.uber.org/zap"
)

// Gate is the privacy check consulted before inviting.
type Gate interface {
	CanSendClanInvite(ctx context.Context, targetID int64) (bool, error)
}

// Engine drives all clan mutations through the transactional store.
type Engine struct {
	store   store.Store
	gate    Gate
	emitter notify.Emitter
	users   *usercache.Cache
	logger  *zap.Logger
}

// NewEngine creates a clan engine.
func NewEngine(st store.Store, gate Gate, emitter notify.Emitter, users *usercache.Cache, logger *zap.Logger) *Engine {
	return &Engine{store: st, gate: gate, emitter: emitter, users: users, logger: logger}
}

// Updates carries optional detail changes; nil fields are left untouched.
type Updates struct {
	Name        *string
	Description *string
	Privacy     *string
}

// Create makes a new clan with the creator as its sole owner, clan and owner
// member in one transaction.
func (e *Engine) Create(ctx context.Context, ownerID int64, name, description, privacy string) (*model.Clan, error) {
	if name == "" {
		return nil, apperr.New(apperr.KindValidation, "clan name is required")
	}
	if privacy == "" {
		privacy = model.ClanInviteOnly
	}
	if privacy != model.ClanInviteOnly && privacy != model.ClanFriendsOnly {
		return nil, apperr.New(apperr.KindValidation, "unknown clan privacy")
	}

	clan := &model.Clan{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		Privacy:     privacy,
	}
	err := e.store.Atomic(ctx, func(tx store.Tx) error {
		if err := tx.WriteClan(clan); err != nil {
			return err
		}
		return tx.WriteMember(&model.ClanMember{
			ClanID: clan.ID,
			UserID: ownerID,
			Role:   model.RoleOwner,
			Status: model.MemberActive,
		})
	})
	if err != nil {
		return nil, err
	}
	return clan, nil
}

// Invite creates a pending invite for toID. For friendsOnly clans the
// inviter must be a friend of the invitee.
func (e *Engine) Invite(ctx context.Context, clanID, fromID, toID int64) (*model.ClanInvite, error) {
	if fromID == toID {
		return nil, apperr.New(apperr.KindValidation, "cannot invite yourself")
	}
	allowed, err := e.gate.CanSendClanInvite(ctx, toID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperr.New(apperr.KindForbidden, "target does not accept clan invites")
	}

	var invite *model.ClanInvite
	var clanName string
	err = e.store.Atomic(ctx, func(tx store.Tx) error {
		clan, err := tx.ReadClan(clanID)
		if err != nil {
			return err
		}
		if clan == nil {
			return apperr.New(apperr.KindNotFound, "clan not found")
		}
		clanName = clan.Name

		requester, err := tx.ReadMember(clanID, fromID)
		if err != nil {
			return err
		}
		if requester == nil {
			return apperr.New(apperr.KindForbidden, "not a clan member")
		}
		target, err := tx.ReadMember(clanID, toID)
		if err != nil {
			return err
		}
		if target != nil {
			return apperr.New(apperr.KindConflict, "already a clan member")
		}
		pending, err := tx.ReadPendingInvite(clanID, toID)
		if err != nil {
			return err
		}
		if pending != nil {
			return apperr.New(apperr.KindConflict, "invite already sent")
		}
		if clan.Privacy == model.ClanFriendsOnly {
			edge, err := tx.ReadEdge(fromID, toID)
			if err != nil {
				return err
			}
			if edge == nil {
				return apperr.New(apperr.KindForbidden, "can only invite friends to this clan")
			}
		}

		invite = &model.ClanInvite{ClanID: clanID, FromID: fromID, ToID: toID, Status: model.InvitePending}
		return tx.WriteInvite(invite)
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, notify.EventClanInviteCreated, fromID, toID, clanID, clanName, "")
	return invite, nil
}

// RespondInvite accepts or rejects a pending invite addressed to toID.
// Accepting writes the member row and resolves the invite in one transaction.
func (e *Engine) RespondInvite(ctx context.Context, clanID, toID int64, action string) error {
	if action != "accept" && action != "reject" {
		return apperr.New(apperr.KindValidation, "action must be accept or reject")
	}

	var inviterID int64
	var clanName string
	err := e.store.Atomic(ctx, func(tx store.Tx) error {
		inv, err := tx.ReadPendingInvite(clanID, toID)
		if err != nil {
			return err
		}
		if inv == nil {
			return apperr.New(apperr.KindNotFound, "invite not found")
		}
		inviterID = inv.FromID
		if clan, err := tx.ReadClan(clanID); err == nil && clan != nil {
			clanName = clan.Name
		}

		if action == "reject" {
			inv.Status = model.InviteRejected
			return tx.WriteInvite(inv)
		}
		inv.Status = model.InviteAccepted
		if err := tx.WriteInvite(inv); err != nil {
			return err
		}
		return tx.WriteMember(&model.ClanMember{
			ClanID: clanID,
			UserID: toID,
			Role:   model.RoleMember,
			Status: model.MemberActive,
		})
	})
	if err != nil {
		return err
	}

	evType := notify.EventClanInviteAccepted
	if action == "reject" {
		evType = notify.EventClanInviteRejected
	}
	e.emit(ctx, evType, toID, inviterID, clanID, clanName, "")
	return nil
}

// Leave removes the caller's membership. The owner must transfer ownership
// first; that gate is what keeps the single-owner invariant.
func (e *Engine) Leave(ctx context.Context, clanID, uid int64) error {
	return e.store.Atomic(ctx, func(tx store.Tx) error {
		m, err := tx.ReadMember(clanID, uid)
		if err != nil {
			return err
		}
		if m == nil {
			return apperr.New(apperr.KindNotFound, "not a clan member")
		}
		if m.Role == model.RoleOwner {
			return apperr.New(apperr.KindPrecondition, "owner must transfer ownership before leaving")
		}
		return tx.DeleteMember(clanID, uid)
	})
}

// RemoveMember kicks targetID. Requires owner or admin; the owner can never
// be removed.
func (e *Engine) RemoveMember(ctx context.Context, clanID, requesterID, targetID int64) error {
	var clanName string
	err := e.store.Atomic(ctx, func(tx store.Tx) error {
		requester, err := tx.ReadMember(clanID, requesterID)
		if err != nil {
			return err
		}
		if requester == nil || (requester.Role != model.RoleOwner && requester.Role != model.RoleAdmin) {
			return apperr.New(apperr.KindForbidden, "insufficient permissions")
		}
		target, err := tx.ReadMember(clanID, targetID)
		if err != nil {
			return err
		}
		if target == nil {
			return apperr.New(apperr.KindNotFound, "member not found")
		}
		if target.Role == model.RoleOwner {
			return apperr.New(apperr.KindPrecondition, "cannot remove the clan owner")
		}
		if clan, err := tx.ReadClan(clanID); err == nil && clan != nil {
			clanName = clan.Name
		}
		return tx.DeleteMember(clanID, targetID)
	})
	if err != nil {
		return err
	}

	e.emit(ctx, notify.EventClanMemberRemoved, requesterID, targetID, clanID, clanName, "")
	return nil
}

// UpdateRole changes a member's role. Only the current owner may call it.
// Promoting to owner is an ownership transfer: demote caller, promote target
// and repoint the clan's owner id in one transaction, so no reader ever sees
// zero or two owners.
func (e *Engine) UpdateRole(ctx context.Context, clanID, callerID, targetID int64, newRole string) error {
	switch newRole {
	case model.RoleOwner, model.RoleAdmin, model.RoleMember:
	default:
		return apperr.New(apperr.KindValidation, "unknown role")
	}
	if callerID == targetID {
		return apperr.New(apperr.KindValidation, "cannot change your own role")
	}

	var clanName string
	transferred := false
	err := e.store.Atomic(ctx, func(tx store.Tx) error {
		clan, err := tx.ReadClan(clanID)
		if err != nil {
			return err
		}
		if clan == nil {
			return apperr.New(apperr.KindNotFound, "clan not found")
		}
		clanName = clan.Name

		caller, err := tx.ReadMember(clanID, callerID)
		if err != nil {
			return err
		}
		if caller == nil || caller.Role != model.RoleOwner {
			return apperr.New(apperr.KindForbidden, "only the owner can update roles")
		}
		target, err := tx.ReadMember(clanID, targetID)
		if err != nil {
			return err
		}
		if target == nil {
			return apperr.New(apperr.KindNotFound, "member not found")
		}

		if newRole == model.RoleOwner {
			transferred = true
			return tx.TransferOwnership(clanID, callerID, targetID)
		}
		target.Role = newRole
		return tx.WriteMember(target)
	})
	if err != nil {
		return err
	}

	if transferred {
		e.emit(ctx, notify.EventClanOwnerTransferred, callerID, targetID, clanID, clanName, model.RoleOwner)
	} else {
		e.emit(ctx, notify.EventClanRoleUpdated, callerID, targetID, clanID, clanName, newRole)
	}
	return nil
}

// UpdateDetails edits clan name, description or privacy. Owner or admin only.
func (e *Engine) UpdateDetails(ctx context.Context, clanID, requesterID int64, updates Updates) (*model.Clan, error) {
	if updates.Privacy != nil &&
		*updates.Privacy != model.ClanInviteOnly && *updates.Privacy != model.ClanFriendsOnly {
		return nil, apperr.New(apperr.KindValidation, "unknown clan privacy")
	}

	var result *model.Clan
	err := e.store.Atomic(ctx, func(tx store.Tx) error {
		requester, err := tx.ReadMember(clanID, requesterID)
		if err != nil {
			return err
		}
		if requester == nil || (requester.Role != model.RoleOwner && requester.Role != model.RoleAdmin) {
			return apperr.New(apperr.KindForbidden, "insufficient permissions")
		}
		clan, err := tx.ReadClan(clanID)
		if err != nil {
			return err
		}
		if clan == nil {
			return apperr.New(apperr.KindNotFound, "clan not found")
		}
		if updates.Name != nil {
			clan.Name = *updates.Name
		}
		if updates.Description != nil {
			clan.Description = *updates.Description
		}
		if updates.Privacy != nil {
			clan.Privacy = *updates.Privacy
		}
		if err := tx.WriteClan(clan); err != nil {
			return err
		}
		result = clan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) emit(ctx context.Context, t notify.EventType, actorID, subjectID, clanID int64, clanName, role string) {
	ev := notify.NewEvent(t, actorID, subjectID)
	ev.ClanID = clanID
	ev.ClanName = clanName
	ev.Role = role
	if actor, err := e.users.Get(ctx, actorID); err == nil {
		ev.ActorName = actor.DisplayName
		if ev.ActorName == "" {
			ev.ActorName = actor.Username
		}
	}
	e.emitter.Emit(ev)
}
