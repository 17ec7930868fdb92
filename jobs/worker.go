package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goCred/internal/logging"
	"github.com/redis/go-redis/v9"
)

// ErrUnknownJob is recorded for jobs with no registered handler.
var ErrUnknownJob = errors.New("no handler for job")

// Handler processes one job. A returned error marks the job failed.
type Handler func(ctx context.Context, job Job) error

// WorkerConfig tunes the polling loop.
type WorkerConfig struct {
	// PollTimeout bounds each BLMOVE so Run notices cancellation.
	PollTimeout time.Duration
	// JobTimeout bounds a single handler call. Zero means no limit.
	JobTimeout time.Duration
	// RetryBackoff is the pause after a Redis failure.
	RetryBackoff time.Duration
}

// Worker consumes a Queue.
type Worker struct {
	queue    *Queue
	handlers map[string]Handler
	cfg      WorkerConfig
	log      logging.Logger

	processed atomic.Uint64
	failed    atomic.Uint64
}

func NewWorker(queue *Queue, cfg WorkerConfig, logger logging.Logger) *Worker {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Worker{
		queue:    queue,
		handlers: map[string]Handler{},
		cfg:      cfg,
		log:      logger.With("component", "jobs.worker"),
	}
}

// Handle registers h for name. Call before Run.
func (w *Worker) Handle(name string, h Handler) {
	w.handlers[name] = h
}

// Processed and Failed count finished jobs since start.
func (w *Worker) Processed() uint64 { return w.processed.Load() }
func (w *Worker) Failed() uint64    { return w.failed.Load() }

// Run processes jobs until ctx is cancelled. Jobs left in active by an
// earlier run are requeued first.
func (w *Worker) Run(ctx context.Context) error {
	if n, err := w.queue.RequeueActive(ctx); err != nil {
		w.log.Warn(ctx, "requeue active jobs failed", "error", err)
	} else if n > 0 {
		w.log.Info(ctx, "requeued interrupted jobs", "count", n)
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := w.ProcessOne(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log.Error(ctx, "job poll failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.cfg.RetryBackoff):
			}
		}
	}
}

// ProcessOne claims at most one job, runs it and records the outcome.
// It reports false when no job arrived within the poll timeout.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	raw, err := w.queue.claim(ctx, w.cfg.PollTimeout)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	job, decodeErr := decodeJob(raw)
	if decodeErr != nil {
		w.failed.Add(1)
		w.log.Error(ctx, "discarding malformed job", "error", decodeErr)
		return true, w.queue.finish(ctx, raw, Job{Error: decodeErr.Error()}, true)
	}

	runErr := w.run(ctx, job)
	if runErr != nil {
		job.Error = runErr.Error()
		w.failed.Add(1)
		w.log.Warn(ctx, "job failed", "job_id", job.ID, "job", job.Name, "error", runErr)
	} else {
		w.processed.Add(1)
		w.log.Debug(ctx, "job completed", "job_id", job.ID, "job", job.Name)
	}
	return true, w.queue.finish(ctx, raw, job, runErr != nil)
}

func (w *Worker) run(ctx context.Context, job Job) (err error) {
	h, ok := w.handlers[job.Name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, job.Name)
	}
	if w.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.JobTimeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	return h(ctx, job)
}
