package maintenance

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/pulsefit/pulsefit-server/model"
	"github.com/pulsefit/pulsefit-server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEvery_Fires(t *testing.T) {
	j := New(testutil.SetupTestDB(t), zap.NewNop())
	defer j.Stop()

	var count int32
	j.Every("tick", 20*time.Millisecond, func() {
		atomic.AddInt32(&count, 1)
	})

	time.Sleep(120 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&count), int32(3))
}

func TestEvery_Replaces(t *testing.T) {
	j := New(testutil.SetupTestDB(t), zap.NewNop())
	defer j.Stop()

	var count1, count2 int32
	j.Every("task", 20*time.Millisecond, func() { atomic.AddInt32(&count1, 1) })
	time.Sleep(30 * time.Millisecond)
	j.Every("task", 20*time.Millisecond, func() { atomic.AddInt32(&count2, 1) })
	time.Sleep(80 * time.Millisecond)

	snap := atomic.LoadInt32(&count1)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, snap, atomic.LoadInt32(&count1), "replaced task must stop")
	assert.Positive(t, atomic.LoadInt32(&count2))
}

func TestEvery_PanicRecovered(t *testing.T) {
	j := New(testutil.SetupTestDB(t), zap.NewNop())
	defer j.Stop()

	j.Every("panic", 20*time.Millisecond, func() { panic("oops") })
	time.Sleep(80 * time.Millisecond)
	// Reaching here means the panic did not escape the task goroutine.
}

func TestStop_Idempotent(t *testing.T) {
	j := New(testutil.SetupTestDB(t), zap.NewNop())
	j.Stop()
	j.Stop()
}

func TestTasks(t *testing.T) {
	j := New(testutil.SetupTestDB(t), zap.NewNop())
	defer j.Stop()

	require.Empty(t, j.Tasks())
	j.Every("alpha", time.Hour, func() {})
	j.Every("beta", time.Hour, func() {})
	names := j.Tasks()
	assert.Len(t, names, 2)
	assert.Contains(t, names, "alpha")
	assert.Contains(t, names, "beta")
}

func TestPruneNotifications(t *testing.T) {
	db := testutil.SetupTestDB(t)
	j := New(db, zap.NewNop())
	defer j.Stop()

	old := time.Now().AddDate(0, 0, -100)
	rows := []model.Notification{
		{UserID: 1, Type: "x", DedupeKey: "a", Read: true, CreatedAt: old},
		{UserID: 1, Type: "x", DedupeKey: "b", Read: false, CreatedAt: old},
		{UserID: 1, Type: "x", DedupeKey: "c", Read: true, CreatedAt: time.Now()},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	j.PruneNotifications(90)

	var n int64
	require.NoError(t, db.Model(&model.Notification{}).Count(&n).Error)
	assert.EqualValues(t, 2, n, "only old read notifications are pruned")

	var unread int64
	require.NoError(t, db.Model(&model.Notification{}).Where("read = ?", false).Count(&unread).Error)
	assert.EqualValues(t, 1, unread)
}

func TestPruneNotifications_DisabledRetention(t *testing.T) {
	db := testutil.SetupTestDB(t)
	j := New(db, zap.NewNop())
	defer j.Stop()

	require.NoError(t, db.Create(&model.Notification{
		UserID: 1, Type: "x", DedupeKey: "a", Read: true,
		CreatedAt: time.Now().AddDate(-1, 0, 0),
	}).Error)

	j.PruneNotifications(0)

	var n int64
	require.NoError(t, db.Model(&model.Notification{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestExpireStaleInvites(t *testing.T) {
	db := testutil.SetupTestDB(t)
	j := New(db, zap.NewNop())
	defer j.Stop()

	old := time.Now().AddDate(0, 0, -40)
	stale := model.ClanInvite{ClanID: 1, FromID: 1, ToID: 2, Status: model.InvitePending, CreatedAt: old}
	fresh := model.ClanInvite{ClanID: 1, FromID: 1, ToID: 3, Status: model.InvitePending}
	resolved := model.ClanInvite{ClanID: 1, FromID: 1, ToID: 4, Status: model.InviteAccepted, CreatedAt: old}
	for _, inv := range []*model.ClanInvite{&stale, &fresh, &resolved} {
		require.NoError(t, db.Create(inv).Error)
	}

	j.ExpireStaleInvites(30)

	var got model.ClanInvite
	require.NoError(t, db.First(&got, stale.ID).Error)
	assert.Equal(t, model.InviteExpired, got.Status)

	got = model.ClanInvite{}
	require.NoError(t, db.First(&got, fresh.ID).Error)
	assert.Equal(t, model.InvitePending, got.Status)

	got = model.ClanInvite{}
	require.NoError(t, db.First(&got, resolved.ID).Error)
	assert.Equal(t, model.InviteAccepted, got.Status)
}
