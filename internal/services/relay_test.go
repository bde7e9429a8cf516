package services

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/codingspiderfox/ledgersync/backend/internal/config"
	"github.com/codingspiderfox/ledgersync/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSyncConfig() config.SyncConfig {
	return config.SyncConfig{
		RelaySchedule: "@every 1m",
		PurgeSchedule: "@daily",
		BatchSize:     10,
		MaxRetries:    3,
		GracePeriod:   0,
		RetentionDays: 7,
	}
}

func TestRelay_AppliesOnlyLatestEvent(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	saved, err := env.res.Projects.Create(ctx, newProject("alpha"))
	require.NoError(t, err)
	saved.Name = "omega"
	_, err = env.res.Projects.Update(ctx, saved.ID, saved)
	require.NoError(t, err)
	assert.Zero(t, env.index.Writes("project"), "nothing is applied without a queue")

	relay := NewRelayService(env.db, env.outbox, testSyncConfig())
	applied, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
	assert.Equal(t, int64(1), env.index.Counters("project").Saves)

	doc, ok := env.mem.Get("project", strconv.FormatInt(saved.ID, 10))
	require.True(t, ok)
	assert.Equal(t, "omega", doc.Body["name"])

	stats, err := env.outbox.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(2), stats.Processed)
	assert.Zero(t, stats.Pending)
	assert.Nil(t, stats.OldestPending)

	applied, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, applied)
}

func TestRelay_DeleteSupersedesUpsert(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	saved, err := env.res.Products.Create(ctx, &models.Product{
		UsualDurationFromBuyTillExpire: ptr(models.Duration(time.Hour)),
		DefaultPrice:                   ptr(2.5),
	})
	require.NoError(t, err)
	require.NoError(t, env.res.Products.Delete(ctx, saved.ID))

	_, err = NewRelayService(env.db, env.outbox, testSyncConfig()).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), env.index.Counters("product").Saves)
	assert.Equal(t, int64(1), env.index.Counters("product").Deletes)
	assert.Zero(t, env.mem.Len("product"))
}

func TestRelay_GivesUpAfterMaxRetries(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	env.flaky.down.Store(true)

	_, err := env.res.Projects.Create(ctx, newProject("alpha"))
	require.NoError(t, err)

	cfg := testSyncConfig()
	relay := NewRelayService(env.db, env.outbox, cfg)
	for i := 0; i < cfg.MaxRetries+2; i++ {
		_, err := relay.RunOnce(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(cfg.MaxRetries), env.index.Counters("project").Failures)

	stats, err := env.outbox.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.Failed)
	assert.NotNil(t, stats.OldestPending)
}

func TestRelay_GracePeriod(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	_, err := env.res.Projects.Create(ctx, newProject("alpha"))
	require.NoError(t, err)

	cfg := testSyncConfig()
	cfg.GracePeriod = time.Hour
	relay := NewRelayService(env.db, env.outbox, cfg)

	applied, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, applied, "event is too young")

	env.outbox.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	applied, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
}

func TestRelay_Purge(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	_, err := env.res.Projects.Create(ctx, newProject("alpha"))
	require.NoError(t, err)

	relay := NewRelayService(env.db, env.outbox, testSyncConfig())
	n, err := relay.PurgeLocked(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "within retention")

	env.outbox.now = func() time.Time { return time.Now().AddDate(0, 0, 8) }
	n, err = relay.PurgeLocked(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Zero(t, env.count(t, &models.ChangeEvent{}))
}

func TestRelay_LockHeldElsewhere(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	_, err := env.res.Projects.Create(ctx, newProject("alpha"))
	require.NoError(t, err)

	ok, err := models.AcquireLock(env.db, relayLockName, lockKey, "other-instance", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	applied, err := NewRelayService(env.db, env.outbox, testSyncConfig()).RunLocked(ctx)
	require.NoError(t, err)
	assert.Zero(t, applied)
	assert.Zero(t, env.index.Writes("project"))
}

func TestRelay_SchedulerRejectsBadSpec(t *testing.T) {
	env := newTestEnv(t, false)
	cfg := testSyncConfig()
	cfg.RelaySchedule = "every now and then"

	relay := NewRelayService(env.db, env.outbox, cfg)
	assert.Error(t, relay.StartScheduler())

	cfg = testSyncConfig()
	relay = NewRelayService(env.db, env.outbox, cfg)
	require.NoError(t, relay.StartScheduler())
	relay.StopScheduler()
}

func TestOutbox_ApplyMissingEvent(t *testing.T) {
	env := newTestEnv(t, false)
	assert.NoError(t, env.outbox.Apply(context.Background(), 42))
}
