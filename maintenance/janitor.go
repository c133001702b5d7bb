// Package maintenance runs periodic background cleanup: pruning old read
// notifications and expiring stale clan invites.
package maintenance

import (
	"sync"
	"time"

	"github.com/pulsefit/pulsefit-server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TaskFn is the signature for periodic cleanup tasks.
type TaskFn func()

// Janitor owns the cleanup tickers. Tasks run on their own goroutines and
// panics are recovered so one bad run never kills the loop.
type Janitor struct {
	mu      sync.Mutex
	db      *gorm.DB
	logger  *zap.Logger
	tickers map[string]*tickerEntry
	stopCh  chan struct{}
}

type tickerEntry struct {
	ticker *time.Ticker
	stopCh chan struct{}
}

// New creates a Janitor.
func New(db *gorm.DB, logger *zap.Logger) *Janitor {
	return &Janitor{
		db:      db,
		logger:  logger,
		tickers: make(map[string]*tickerEntry),
		stopCh:  make(chan struct{}),
	}
}

// Every registers a task to run on a fixed interval. A task with the same
// name replaces the old one.
func (j *Janitor) Every(name string, interval time.Duration, fn TaskFn) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if old, ok := j.tickers[name]; ok {
		close(old.stopCh)
		delete(j.tickers, name)
	}

	entry := &tickerEntry{
		ticker: time.NewTicker(interval),
		stopCh: make(chan struct{}),
	}
	j.tickers[name] = entry

	go func() {
		for {
			select {
			case <-entry.ticker.C:
				func() {
					defer func() {
						if r := recover(); r != nil {
							j.logger.Error("cleanup task panicked",
								zap.String("task", name),
								zap.Any("recover", r))
						}
					}()
					fn()
				}()
			case <-entry.stopCh:
				entry.ticker.Stop()
				return
			case <-j.stopCh:
				entry.ticker.Stop()
				return
			}
		}
	}()
	j.logger.Info("cleanup task registered", zap.String("name", name), zap.Duration("interval", interval))
}

// Tasks returns the names of all registered tasks.
func (j *Janitor) Tasks() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	names := make([]string, 0, len(j.tickers))
	for name := range j.tickers {
		names = append(names, name)
	}
	return names
}

// Stop stops all tasks. Safe to call more than once.
func (j *Janitor) Stop() {
	select {
	case <-j.stopCh:
	default:
		close(j.stopCh)
	}
}

// PruneNotifications deletes read notifications older than retentionDays.
// Unread notifications are kept regardless of age.
func (j *Janitor) PruneNotifications(retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	res := j.db.Where("read = ? AND created_at < ?", true, cutoff).
		Delete(&model.Notification{})
	if res.Error != nil {
		j.logger.Warn("notification prune failed", zap.Error(res.Error))
		return
	}
	if res.RowsAffected > 0 {
		j.logger.Info("pruned notifications", zap.Int64("count", res.RowsAffected))
	}
}

// ExpireStaleInvites marks pending clan invites older than maxAgeDays as
// expired so they no longer block re-inviting.
func (j *Janitor) ExpireStaleInvites(maxAgeDays int) {
	if maxAgeDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)
	res := j.db.Model(&model.ClanInvite{}).
		Where("status = ? AND created_at < ?", model.InvitePending, cutoff).
		Update("status", model.InviteExpired)
	if res.Error != nil {
		j.logger.Warn("invite expiry failed", zap.Error(res.Error))
		return
	}
	if res.RowsAffected > 0 {
		j.logger.Info("expired stale invites", zap.Int64("count", res.RowsAffected))
	}
}
