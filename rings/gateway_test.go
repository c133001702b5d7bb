package rings_test

import (
	"context"
	"testing"
	"time"

	"github.com/pulsefit/pulsefit-server/apperr"
	"github.com/pulsefit/pulsefit-server/model"
	"github.com/pulsefit/pulsefit-server/privacy"
	"github.com/pulsefit/pulsefit-server/rings"
	"github.com/pulsefit/pulsefit-server/testutil"
	"github.com/pulsefit/pulsefit-server/usercache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newGateway(t *testing.T) (*rings.Gateway, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	kv := testutil.SetupTestCache(t)
	viewer := privacy.NewResolver(db, usercache.New(db, kv, time.Minute))
	return rings.NewGateway(db, viewer, zap.NewNop()), db
}

func seedUser(t *testing.T, db *gorm.DB, name, visibility string) int64 {
	t.Helper()
	u := &model.User{
		Username:        name,
		PasswordHash:    "x",
		Status:          1,
		RingsVisibility: visibility,
	}
	require.NoError(t, db.Create(u).Error)
	return u.ID
}

func TestUpsert_ThenGetOwn(t *testing.T) {
	g, db := newGateway(t)
	alice := seedUser(t, db, "alice", model.VisibilityPrivate)

	require.NoError(t, g.Upsert(context.Background(), &model.RingStats{
		UserID: alice, Date: "2026-08-27", CaloriesBurned: 420, Steps: 9000, WorkoutMinutes: 45,
	}))

	got, err := g.Get(context.Background(), alice, alice, "2026-08-27")
	require.NoError(t, err)
	assert.Equal(t, 420, got.CaloriesBurned)
	assert.Equal(t, 9000, got.Steps)
}

func TestUpsert_ReplacesSameDay(t *testing.T) {
	g, db := newGateway(t)
	alice := seedUser(t, db, "alice", model.VisibilityPrivate)

	require.NoError(t, g.Upsert(context.Background(), &model.RingStats{
		UserID: alice, Date: "2026-08-27", Steps: 1000,
	}))
	require.NoError(t, g.Upsert(context.Background(), &model.RingStats{
		UserID: alice, Date: "2026-08-27", Steps: 5000,
	}))

	var n int64
	require.NoError(t, db.Model(&model.RingStats{}).
		Where("user_id = ? AND date = ?", alice, "2026-08-27").Count(&n).Error)
	assert.EqualValues(t, 1, n)

	got, err := g.Get(context.Background(), alice, alice, "2026-08-27")
	require.NoError(t, err)
	assert.Equal(t, 5000, got.Steps)
}

func TestUpsert_Validation(t *testing.T) {
	g, db := newGateway(t)
	alice := seedUser(t, db, "alice", model.VisibilityPrivate)

	err := g.Upsert(context.Background(), &model.RingStats{UserID: alice, Date: "27/08/2026"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	err = g.Upsert(context.Background(), &model.RingStats{UserID: 0, Date: "2026-08-27"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestGet_VisibilityGate(t *testing.T) {
	g, db := newGateway(t)
	alice := seedUser(t, db, "alice", model.VisibilityPrivate)
	bob := seedUser(t, db, "bob", model.VisibilityFriends)

	require.NoError(t, g.Upsert(context.Background(), &model.RingStats{
		UserID: alice, Date: "2026-08-27", Steps: 100,
	}))

	_, err := g.Get(context.Background(), bob, alice, "2026-08-27")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestGet_MissingDay(t *testing.T) {
	g, db := newGateway(t)
	alice := seedUser(t, db, "alice", model.VisibilityPrivate)

	_, err := g.Get(context.Background(), alice, alice, "2026-01-01")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestRange_NewestFirst(t *testing.T) {
	g, db := newGateway(t)
	alice := seedUser(t, db, "alice", model.VisibilityPublic)
	bob := seedUser(t, db, "bob", model.VisibilityFriends)

	for _, d := range []string{"2026-08-25", "2026-08-27", "2026-08-26"} {
		require.NoError(t, g.Upsert(context.Background(), &model.RingStats{UserID: alice, Date: d}))
	}
	// Out of range.
	require.NoError(t, g.Upsert(context.Background(), &model.RingStats{UserID: alice, Date: "2026-08-01"}))

	got, err := g.Range(context.Background(), bob, alice, "2026-08-25", "2026-08-27")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2026-08-27", got[0].Date)
	assert.Equal(t, "2026-08-26", got[1].Date)
	assert.Equal(t, "2026-08-25", got[2].Date)
}

func TestRange_Gated(t *testing.T) {
	g, db := newGateway(t)
	alice := seedUser(t, db, "alice", model.VisibilityFriends)
	bob := seedUser(t, db, "bob", model.VisibilityFriends)

	_, err := g.Range(context.Background(), bob, alice, "2026-08-01", "2026-08-27")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}
