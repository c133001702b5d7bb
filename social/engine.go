// Package social implements the friendship state machine: request lifecycle,
// reciprocal auto-accept, symmetric add/remove and blocking.
package social

import (
	"context"

	"github.com/pulsefit/pulsefit-server/apperr"
	"github.com/pulsefit/pulsefit-server/model"
	"github.com/pulsefit/pulsefit-server/notify"
	"github.com/pulsefit/pulsefit-server/store"
	"github.com/pulsefit/pulsefit-server/usercache"
	"go.uber.org/zap"
)

// Gate is the privacy check consulted before a mutation.
type Gate interface {
	CanSendFriendRequest(ctx context.Context, targetID int64) (bool, error)
}

// Engine drives all friendship mutations through the transactional store.
type Engine struct {
	store   store.Store
	gate    Gate
	emitter notify.Emitter
	users   *usercache.Cache
	logger  *zap.Logger
}

// NewEngine creates a friendship engine.
func NewEngine(st store.Store, gate Gate, emitter notify.Emitter, users *usercache.Cache, logger *zap.Logger) *Engine {
	return &Engine{store: st, gate: gate, emitter: emitter, users: users, logger: logger}
}

// SendRequest creates a pending request from → to, or resolves a reciprocal
// pending request into an accepted friendship. The reciprocal check and all
// writes share one transaction, so two users racing to request each other
// always converge on a single symmetric friendship.
func (e *Engine) SendRequest(ctx context.Context, fromID, toID int64) (*model.FriendRequest, error) {
	if fromID == toID {
		return nil, apperr.New(apperr.KindValidation, "cannot send a friend request to yourself")
	}
	allowed, err := e.gate.CanSendFriendRequest(ctx, toID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperr.New(apperr.KindForbidden, "target does not accept friend requests")
	}

	var result *model.FriendRequest
	var evType notify.EventType
	err = e.store.Atomic(ctx, func(tx store.Tx) error {
		if err := blockedEither(tx, fromID, toID); err != nil {
			return err
		}
		edge, err := tx.ReadEdge(fromID, toID)
		if err != nil {
			return err
		}
		if edge != nil {
			return apperr.New(apperr.KindConflict, "already friends")
		}

		reciprocal, err := tx.ReadPendingRequest(toID, fromID)
		if err != nil {
			return err
		}
		if reciprocal != nil {
			// Auto-accept: both edges, the reciprocal request and a mirror
			// accepted request commit together so client history stays
			// consistent from either side.
			if err := tx.WriteEdgePair(fromID, toID); err != nil {
				return err
			}
			reciprocal.Status = model.RequestAccepted
			if err := tx.WriteRequest(reciprocal); err != nil {
				return err
			}
			req := &model.FriendRequest{FromID: fromID, ToID: toID, Status: model.RequestAccepted}
			if err := tx.WriteRequest(req); err != nil {
				return err
			}
			result = req
			evType = notify.EventFriendRequestAutoAccepted
			return nil
		}

		dup, err := tx.ReadPendingRequest(fromID, toID)
		if err != nil {
			return err
		}
		if dup != nil {
			return apperr.New(apperr.KindConflict, "friend request already sent")
		}

		req := &model.FriendRequest{FromID: fromID, ToID: toID, Status: model.RequestPending}
		if err := tx.WriteRequest(req); err != nil {
			return err
		}
		result = req
		evType = notify.EventFriendRequestCreated
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, evType, fromID, toID)
	return result, nil
}

// Respond accepts or rejects a pending request addressed to toID. Acting on
// an already-resolved request returns NotFound so clients can tell a replay
// from a fresh resolution.
func (e *Engine) Respond(ctx context.Context, fromID, toID int64, action string) error {
	if action != "accept" && action != "reject" {
		return apperr.New(apperr.KindValidation, "action must be accept or reject")
	}

	err := e.store.Atomic(ctx, func(tx store.Tx) error {
		req, err := tx.ReadPendingRequest(fromID, toID)
		if err != nil {
			return err
		}
		if req == nil {
			return apperr.New(apperr.KindNotFound, "friend request not found")
		}
		if action == "reject" {
			req.Status = model.RequestRejected
			return tx.WriteRequest(req)
		}
		req.Status = model.RequestAccepted
		if err := tx.WriteRequest(req); err != nil {
			return err
		}
		// A racing reciprocal send can leave a mirror pending behind; resolve
		// it in the same commit so neither side can act on it again.
		mirror, err := tx.ReadPendingRequest(toID, fromID)
		if err != nil {
			return err
		}
		if mirror != nil {
			mirror.Status = model.RequestAccepted
			if err := tx.WriteRequest(mirror); err != nil {
				return err
			}
		}
		if err := tx.WriteEdgePair(fromID, toID); err != nil {
			if apperr.KindOf(err) == apperr.KindConflict {
				// The friendship already exists; accepting converges on it
				// instead of failing.
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	evType := notify.EventFriendRequestAccepted
	if action == "reject" {
		evType = notify.EventFriendRequestRejected
	}
	e.emit(ctx, evType, toID, fromID)
	return nil
}

// Cancel withdraws a pending request. Only the original sender holds the
// (fromID, toID) key, so anyone else sees NotFound.
func (e *Engine) Cancel(ctx context.Context, fromID, toID int64) error {
	return e.store.Atomic(ctx, func(tx store.Tx) error {
		req, err := tx.ReadPendingRequest(fromID, toID)
		if err != nil {
			return err
		}
		if req == nil {
			return apperr.New(apperr.KindNotFound, "friend request not found")
		}
		req.Status = model.RequestCanceled
		return tx.WriteRequest(req)
	})
}

// Remove deletes both halves of a friendship. Removing a non-friend is a
// no-op, not an error.
func (e *Engine) Remove(ctx context.Context, uid, friendID int64) error {
	return e.store.Atomic(ctx, func(tx store.Tx) error {
		return tx.DeleteEdgePair(uid, friendID)
	})
}

// SetRingsShare toggles per-friend ring sharing on the caller's edge.
func (e *Engine) SetRingsShare(ctx context.Context, uid, friendID int64, share bool) error {
	return e.store.Atomic(ctx, func(tx store.Tx) error {
		return tx.SetEdgeShare(uid, friendID, share)
	})
}

// Block removes any friendship, cancels pending requests in both directions
// and records the block, all in one transaction. A half-applied block is
// never observable.
func (e *Engine) Block(ctx context.Context, blockerID, blockedID int64) error {
	if blockerID == blockedID {
		return apperr.New(apperr.KindValidation, "cannot block yourself")
	}
	return e.store.Atomic(ctx, func(tx store.Tx) error {
		if err := tx.DeleteEdgePair(blockerID, blockedID); err != nil {
			return err
		}
		for _, pair := range [][2]int64{{blockerID, blockedID}, {blockedID, blockerID}} {
			req, err := tx.ReadPendingRequest(pair[0], pair[1])
			if err != nil {
				return err
			}
			if req != nil {
				req.Status = model.RequestCanceled
				if err := tx.WriteRequest(req); err != nil {
					return err
				}
			}
		}
		return tx.WriteBlock(blockerID, blockedID)
	})
}

// Unblock deletes the block only; prior friendship and requests stay gone.
func (e *Engine) Unblock(ctx context.Context, blockerID, blockedID int64) error {
	return e.store.Atomic(ctx, func(tx store.Tx) error {
		return tx.DeleteBlock(blockerID, blockedID)
	})
}

// blockedEither fails with Forbidden when a block exists in either direction.
func blockedEither(tx store.Tx, a, b int64) error {
	for _, pair := range [][2]int64{{a, b}, {b, a}} {
		block, err := tx.ReadBlock(pair[0], pair[1])
		if err != nil {
			return err
		}
		if block != nil {
			return apperr.New(apperr.KindForbidden, "blocked")
		}
	}
	return nil
}

func (e *Engine) emit(ctx context.Context, t notify.EventType, actorID, subjectID int64) {
	ev := notify.NewEvent(t, actorID, subjectID)
	if actor, err := e.users.Get(ctx, actorID); err == nil {
		ev.ActorName = actor.DisplayName
		if ev.ActorName == "" {
			ev.ActorName = actor.Username
		}
	}
	e.emitter.Emit(ev)
}
