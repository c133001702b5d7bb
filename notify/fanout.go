package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/pulsefit/pulsefit-server/cache"
	"github.com/pulsefit/pulsefit-server/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Config tunes the fan-out worker.
type Config struct {
	Buffer    int
	DedupeTTL time.Duration
}

// Fanout turns engine events into persisted notifications and push messages.
// Delivery from the engines is at-least-once; the (event, recipient) dedupe
// key in the cache plus the unique DedupeKey column keep it idempotent.
type Fanout struct {
	db     *gorm.DB
	kv     cache.Cache
	sender Sender
	logger *zap.Logger

	ch        chan Event
	stopCh    chan struct{}
	wg        sync.WaitGroup
	dedupeTTL time.Duration
}

// New creates a Fanout and starts its background worker.
func New(db *gorm.DB, kv cache.Cache, sender Sender, logger *zap.Logger, cfg Config) *Fanout {
	buf := cfg.Buffer
	if buf <= 0 {
		buf = 1024
	}
	ttl := cfg.DedupeTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	f := &Fanout{
		db:        db,
		kv:        kv,
		sender:    sender,
		logger:    logger,
		ch:        make(chan Event, buf),
		stopCh:    make(chan struct{}),
		dedupeTTL: ttl,
	}
	f.wg.Add(1)
	go f.worker()
	return f
}

// Emit enqueues an event without blocking the caller.
func (f *Fanout) Emit(ev Event) {
	select {
	case f.ch <- ev:
	default:
		f.logger.Warn("notify channel full, dropping event",
			zap.String("type", string(ev.Type)))
	}
}

// Stop drains pending events and shuts down the worker.
func (f *Fanout) Stop() {
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	f.wg.Wait()
}

func (f *Fanout) worker() {
	defer f.wg.Done()
	for {
		select {
		case ev := <-f.ch:
			f.process(ev)
		case <-f.stopCh:
			for {
				select {
				case ev := <-f.ch:
					f.process(ev)
				default:
					return
				}
			}
		}
	}
}

func (f *Fanout) process(ev Event) {
	if ev.SubjectID == 0 || ev.SubjectID == ev.ActorID {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dedupe := fmt.Sprintf("notif:%s:%d", ev.ID, ev.SubjectID)
	fresh, err := f.kv.SetNX(ctx, dedupe, "1", f.dedupeTTL)
	if err != nil {
		f.logger.Warn("notify dedupe check failed", zap.Error(err))
	} else if !fresh {
		return
	}

	title, body := message(ev)
	data, _ := json.Marshal(map[string]string{
		"actor_id": strconv.FormatInt(ev.ActorID, 10),
		"clan_id":  strconv.FormatInt(ev.ClanID, 10),
		"type":     string(ev.Type),
	})
	record := &model.Notification{
		UserID:    ev.SubjectID,
		Type:      string(ev.Type),
		Title:     title,
		Body:      body,
		Data:      datatypes.JSON(data),
		DedupeKey: dedupe,
	}
	if err := f.db.WithContext(ctx).Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return // a previous delivery already landed
		}
		// Release the claim so a later replay of this event can still land;
		// otherwise a transient write failure suppresses it for the full TTL.
		_ = f.kv.Del(ctx, dedupe)
		f.logger.Error("notification write failed",
			zap.String("type", string(ev.Type)), zap.Error(err))
		return
	}

	f.push(ctx, ev, title, body)
}

func (f *Fanout) push(ctx context.Context, ev Event, title, body string) {
	var user model.User
	if err := f.db.WithContext(ctx).First(&user, ev.SubjectID).Error; err != nil {
		return
	}
	if user.PushToken == "" {
		return
	}
	err := f.sender.Send(ctx, user.PushToken, title, body, map[string]string{
		"type":     string(ev.Type),
		"actor_id": strconv.FormatInt(ev.ActorID, 10),
	})
	if err != nil {
		f.logger.Warn("push send failed",
			zap.Int64("user_id", ev.SubjectID), zap.Error(err))
	}
}

func message(ev Event) (title, body string) {
	actor := ev.ActorName
	if actor == "" {
		actor = "Someone"
	}
	switch ev.Type {
	case EventFriendRequestCreated:
		return "New friend request", fmt.Sprintf("%s wants to be your friend", actor)
	case EventFriendRequestAutoAccepted, EventFriendRequestAccepted:
		return "Friend request accepted", fmt.Sprintf("You and %s are now friends", actor)
	case EventFriendRequestRejected:
		return "Friend request declined", fmt.Sprintf("%s declined your friend request", actor)
	case EventClanInviteCreated:
		return "Clan invite", fmt.Sprintf("%s invited you to join %s", actor, ev.ClanName)
	case EventClanInviteAccepted:
		return "Invite accepted", fmt.Sprintf("%s joined %s", actor, ev.ClanName)
	case EventClanInviteRejected:
		return "Invite declined", fmt.Sprintf("%s declined your invite to %s", actor, ev.ClanName)
	case EventClanMemberRemoved:
		return "Removed from clan", fmt.Sprintf("You were removed from %s", ev.ClanName)
	case EventClanRoleUpdated:
		return "Role updated", fmt.Sprintf("You are now %s of %s", ev.Role, ev.ClanName)
	case EventClanOwnerTransferred:
		return "Clan ownership", fmt.Sprintf("You are now the owner of %s", ev.ClanName)
	}
	return "Update", "Something happened in your network"
}
