// Package rings stores per-day derived fitness stats and serves them back
// gated by the privacy resolver.
package rings

import (
	"context"
	"errors"
	"time"

	"github.com/pulsefit/pulsefit-server/apperr"
	"github.com/pulsefit/pulsefit-server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Viewer gates read access to another user's stats.
type Viewer interface {
	CanViewRings(ctx context.Context, viewerID, targetID int64) (bool, error)
}

// Gateway upserts and reads ring stats.
type Gateway struct {
	db     *gorm.DB
	viewer Viewer
	logger *zap.Logger
}

// NewGateway creates a ring stats gateway.
func NewGateway(db *gorm.DB, viewer Viewer, logger *zap.Logger) *Gateway {
	return &Gateway{db: db, viewer: viewer, logger: logger}
}

// Upsert writes the user's stats for stats.Date, replacing any prior row for
// that day.
func (g *Gateway) Upsert(ctx context.Context, stats *model.RingStats) error {
	if stats.UserID == 0 || stats.Date == "" {
		return apperr.New(apperr.KindValidation, "user and date are required")
	}
	if _, err := time.Parse(model.RingDateLayout, stats.Date); err != nil {
		return apperr.New(apperr.KindValidation, "date must be YYYY-MM-DD")
	}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"calories_burned", "steps", "workout_minutes", "goals", "updated_at",
		}),
	}).Create(stats).Error
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "upsert ring stats", err)
	}
	return nil
}

// Get returns target's stats for one day, or Forbidden when the viewer may
// not see them. A day with no recorded stats is NotFound.
func (g *Gateway) Get(ctx context.Context, viewerID, targetID int64, date string) (*model.RingStats, error) {
	ok, err := g.viewer.CanViewRings(ctx, viewerID, targetID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.KindForbidden, "ring stats are not visible to you")
	}

	var stats model.RingStats
	err = g.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", targetID, date).
		First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "no stats for that day")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "read ring stats", err)
	}
	return &stats, nil
}

// Range returns target's stats between from and to inclusive, newest first,
// under the same visibility gate as Get.
func (g *Gateway) Range(ctx context.Context, viewerID, targetID int64, from, to string) ([]model.RingStats, error) {
	ok, err := g.viewer.CanViewRings(ctx, viewerID, targetID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.KindForbidden, "ring stats are not visible to you")
	}

	var stats []model.RingStats
	err = g.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", targetID, from, to).
		Order("date DESC").
		Find(&stats).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "read ring stats", err)
	}
	return stats, nil
}
