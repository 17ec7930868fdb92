package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultQueue is the queue notification and image jobs share.
	DefaultQueue = "file-processing"

	JobProcessImage     = "process-image"
	JobSendNotification = "send-notification"

	defaultPrefix      = "jobs"
	defaultHistorySize = 100
)

// ErrQueueUnavailable wraps every Redis transport failure.
var ErrQueueUnavailable = errors.New("job queue unavailable")

// Job is one unit of background work.
type Job struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Payload    map[string]string `json:"payload,omitempty"`
	EnqueuedAt time.Time         `json:"enqueuedAt"`
	FinishedAt *time.Time        `json:"finishedAt,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// QueueStatus counts jobs per state.
type QueueStatus struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// QueueConfig names the queue and bounds its history lists.
type QueueConfig struct {
	Prefix      string
	Name        string
	HistorySize int64
}

// Queue is a Redis-list job queue.
type Queue struct {
	redis   redis.UniversalClient
	base    string
	history int64
	now     func() time.Time
}

func NewQueue(client redis.UniversalClient, cfg QueueConfig) *Queue {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.Name == "" {
		cfg.Name = DefaultQueue
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaultHistorySize
	}
	return &Queue{
		redis:   client,
		base:    cfg.Prefix + ":" + cfg.Name,
		history: cfg.HistorySize,
		now:     time.Now,
	}
}

func (q *Queue) waitingKey() string   { return q.base + ":waiting" }
func (q *Queue) activeKey() string    { return q.base + ":active" }
func (q *Queue) completedKey() string { return q.base + ":completed" }
func (q *Queue) failedKey() string    { return q.base + ":failed" }

// Enqueue appends a job to the waiting list and returns it with its ID set.
func (q *Queue) Enqueue(ctx context.Context, name string, payload map[string]string) (Job, error) {
	if name == "" {
		return Job{}, errors.New("job name required")
	}
	job := Job{
		ID:         uuid.NewString(),
		Name:       name,
		Payload:    payload,
		EnqueuedAt: q.now().UTC(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return Job{}, fmt.Errorf("encode job: %w", err)
	}
	if err := q.redis.LPush(ctx, q.waitingKey(), raw).Err(); err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return job, nil
}

// Status reads the four list lengths in one round trip.
func (q *Queue) Status(ctx context.Context) (QueueStatus, error) {
	var waiting, active, completed, failed *redis.IntCmd
	_, err := q.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		waiting = pipe.LLen(ctx, q.waitingKey())
		active = pipe.LLen(ctx, q.activeKey())
		completed = pipe.LLen(ctx, q.completedKey())
		failed = pipe.LLen(ctx, q.failedKey())
		return nil
	})
	if err != nil {
		return QueueStatus{}, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return QueueStatus{
		Waiting:   waiting.Val(),
		Active:    active.Val(),
		Completed: completed.Val(),
		Failed:    failed.Val(),
	}, nil
}

// Ping checks Redis connectivity for readiness probes.
func (q *Queue) Ping(ctx context.Context) error {
	if err := q.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return nil
}

// claim blocks up to timeout for the next waiting job and moves it to active.
// It returns redis.Nil when nothing arrived.
func (q *Queue) claim(ctx context.Context, timeout time.Duration) (string, error) {
	raw, err := q.redis.BLMove(ctx, q.waitingKey(), q.activeKey(), "RIGHT", "LEFT", timeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", redis.Nil
		}
		return "", fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return raw, nil
}

// finish removes raw from active and records job in the completed or failed
// history, trimmed to the configured size.
func (q *Queue) finish(ctx context.Context, raw string, job Job, failed bool) error {
	now := q.now().UTC()
	job.FinishedAt = &now
	encoded, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	target := q.completedKey()
	if failed {
		target = q.failedKey()
	}
	_, err = q.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.activeKey(), 1, raw)
		pipe.LPush(ctx, target, encoded)
		pipe.LTrim(ctx, target, 0, q.history-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return nil
}

// RequeueActive moves jobs left in active by a stopped worker back to waiting.
func (q *Queue) RequeueActive(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.redis.LMove(ctx, q.activeKey(), q.waitingKey(), "RIGHT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
		}
		moved++
	}
}

func decodeJob(raw string) (Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return Job{}, fmt.Errorf("decode job: %w", err)
	}
	return job, nil
}
