package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/codingspiderfox/ledgersync/backend/internal/config"
	"github.com/codingspiderfox/ledgersync/backend/pkg/logger"
	"github.com/hibiken/asynq"
)

const (
	TaskTypeMirrorApply = "mirror:apply"
	mirrorQueueName     = "mirror"
)

// MirrorTask asks for one change event to be applied to the search mirror.
type MirrorTask struct {
	EventID    uint64 `json:"event_id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
}

// TaskID de-duplicates enqueues of the same event.
func (t *MirrorTask) TaskID() string {
	return fmt.Sprintf("mirror-event-%d", t.EventID)
}

// TaskQueue hands change events to whatever applies them.
type TaskQueue interface {
	// Enqueue adds a task to the queue
	Enqueue(ctx context.Context, task *MirrorTask) error
	// IsAsync returns true if queue processes tasks asynchronously
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

// TaskProcessor applies one task.
type TaskProcessor func(context.Context, *MirrorTask) error

var (
	globalTaskQueue TaskQueue
	taskQueueOnce   sync.Once
)

// InitTaskQueue initializes the global task queue based on config. The
// processor is used by the inline queue when Redis is disabled or down.
func InitTaskQueue(cfg *config.Config, processor TaskProcessor) TaskQueue {
	taskQueueOnce.Do(func() {
		if cfg.Redis.Enabled {
			queue, err := NewAsyncQueue(&cfg.Redis, cfg.Sync.MaxRetries)
			if err != nil {
				logger.Warnf("[TaskQueue] Redis unavailable, falling back to inline mirror sync: %v", err)
				globalTaskQueue = NewSyncQueue(processor)
			} else {
				logger.Infof("[TaskQueue] Async mirror queue initialized with Redis at %s", cfg.Redis.Addr)
				globalTaskQueue = queue
			}
		} else {
			logger.Infof("[TaskQueue] Inline mirror sync (Redis disabled)")
			globalTaskQueue = NewSyncQueue(processor)
		}
	})
	return globalTaskQueue
}

// GetTaskQueue returns the queue set up by InitTaskQueue, or nil.
func GetTaskQueue() TaskQueue {
	return globalTaskQueue
}

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client   *asynq.Client
	maxRetry int
}

func NewAsyncQueue(cfg *config.RedisConfig, maxRetry int) (*AsyncQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := asynq.NewClient(redisOpt)

	// Verify the connection before committing to async mode.
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client, maxRetry: maxRetry}, nil
}

func (q *AsyncQueue) Enqueue(ctx context.Context, task *MirrorTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	t := asynq.NewTask(TaskTypeMirrorApply, payload)
	info, err := q.client.EnqueueContext(ctx, t,
		asynq.Queue(mirrorQueueName),
		asynq.TaskID(task.TaskID()),
		asynq.MaxRetry(q.maxRetry),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return err
	}

	logger.Debug().Str("task_id", info.ID).Str("queue", info.Queue).Uint64("event_id", task.EventID).
		Msg("Mirror task enqueued")
	return nil
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue applies tasks in the caller's goroutine, so the mirror is
// written before the request that caused the change returns.
type SyncQueue struct {
	processor TaskProcessor
}

func NewSyncQueue(processor TaskProcessor) *SyncQueue {
	return &SyncQueue{processor: processor}
}

func (q *SyncQueue) SetProcessor(processor TaskProcessor) {
	q.processor = processor
}

func (q *SyncQueue) Enqueue(ctx context.Context, task *MirrorTask) error {
	if q.processor == nil {
		logger.Warnf("[SyncQueue] No processor set, event %d left for the relay", task.EventID)
		return nil
	}
	return q.processor(ctx, task)
}

func (q *SyncQueue) IsAsync() bool {
	return false
}

func (q *SyncQueue) Close() error {
	return nil
}

// OutboxProcessor adapts an Outbox to a TaskProcessor.
func OutboxProcessor(o *Outbox) TaskProcessor {
	return func(ctx context.Context, task *MirrorTask) error {
		return o.Apply(ctx, task.EventID)
	}
}
