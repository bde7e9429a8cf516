package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/codingspiderfox/ledgersync/backend/internal/mirror"
	"github.com/codingspiderfox/ledgersync/backend/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	epoch0       = time.Unix(0, 0).UTC()
	fixedTime    = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	errMirrorOff = errors.New("mirror unavailable")
)

// flakyIndex fails every write while down is set.
type flakyIndex struct {
	mirror.Index
	down atomic.Bool
}

func (f *flakyIndex) Save(ctx context.Context, doc mirror.Document) error {
	if f.down.Load() {
		return errMirrorOff
	}
	return f.Index.Save(ctx, doc)
}

func (f *flakyIndex) Delete(ctx context.Context, entityType, id string) error {
	if f.down.Load() {
		return errMirrorOff
	}
	return f.Index.Delete(ctx, entityType, id)
}

type testEnv struct {
	db     *gorm.DB
	mem    *mirror.MemoryIndex
	flaky  *flakyIndex
	index  *mirror.Instrumented
	outbox *Outbox
	res    *Resources
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.Migrate(db))
	return db
}

// newTestEnv wires the synchronizers with an inline queue unless inline is
// false, in which case events stay pending for the relay.
func newTestEnv(t *testing.T, inline bool) *testEnv {
	t.Helper()
	db := openTestDB(t)
	mem := mirror.NewMemoryIndex()
	flaky := &flakyIndex{Index: mem}
	index := mirror.NewInstrumented(flaky)
	outbox := NewOutbox(db, index)

	deps := SyncDeps{DB: db, Outbox: outbox}
	if inline {
		deps.Queue = NewSyncQueue(OutboxProcessor(outbox))
	}
	return &testEnv{
		db:     db,
		mem:    mem,
		flaky:  flaky,
		index:  index,
		outbox: outbox,
		res:    NewResources(deps),
	}
}

func (e *testEnv) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Count(&n).Error)
	return n
}

func newProject(name string) *models.Project {
	return &models.Project{Name: name, Key: strings.ToUpper(name), CreateTimestamp: fixedTime}
}

func ptr[T any](v T) *T { return &v }
