package jobs

import (
	"context"
	"errors"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goCred/internal/logging"
)

var (
	// ErrDispatcherFull is returned by Submit when the buffer is full and
	// DropIfFull is set.
	ErrDispatcherFull = errors.New("job dispatcher buffer full")
	// ErrDispatcherClosed is returned by Submit after Close.
	ErrDispatcherClosed = errors.New("job dispatcher closed")
)

// Enqueuer is the queue side of a Dispatcher.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload map[string]string) (Job, error)
}

// DispatcherConfig sizes the in-memory buffer.
type DispatcherConfig struct {
	BufferSize     int
	DropIfFull     bool
	EnqueueTimeout time.Duration
}

type pendingJob struct {
	name    string
	payload map[string]string
}

// Dispatcher buffers submitted jobs and enqueues them from one goroutine.
// It satisfies goCred.JobSink.
type Dispatcher struct {
	cfg       DispatcherConfig
	queue     Enqueuer
	log       logging.Logger
	ch        chan pendingJob
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	failed    atomic.Uint64
	closeOnce sync.Once

	// mu is read-held by Submit across the closed check and the send, so
	// Close cannot close done while a job is on its way into ch.
	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(cfg DispatcherConfig, queue Enqueuer, logger logging.Logger) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = 2 * time.Second
	}
	if logger == nil {
		logger = logging.Nop{}
	}

	d := &Dispatcher{
		cfg:   cfg,
		queue: queue,
		log:   logger.With("component", "jobs.dispatcher"),
		ch:    make(chan pendingJob, cfg.BufferSize),
		done:  make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.ch:
			d.enqueue(job)
		case <-d.done:
			for {
				select {
				case job := <-d.ch:
					d.enqueue(job)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) enqueue(job pendingJob) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.EnqueueTimeout)
	defer cancel()
	if _, err := d.queue.Enqueue(ctx, job.name, job.payload); err != nil {
		d.failed.Add(1)
		d.log.Warn(ctx, "enqueue failed", "job", job.name, "error", err)
	}
}

// Submit hands a job to the background goroutine. With DropIfFull it never
// blocks; otherwise it waits for buffer space until ctx is done.
func (d *Dispatcher) Submit(ctx context.Context, name string, payload map[string]string) error {
	if d == nil {
		return ErrDispatcherClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	job := pendingJob{name: name, payload: maps.Clone(payload)}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- job:
			return nil
		default:
			d.dropped.Add(1)
			return ErrDispatcherFull
		}
	}

	select {
	case d.ch <- job:
		return nil
	case <-ctx.Done():
		d.dropped.Add(1)
		return ctx.Err()
	}
}

// Close stops accepting jobs and drains the buffer. Every Submit that
// returned nil is enqueued before Close returns. A blocking Submit still
// waiting for buffer space delays Close until it sends or its ctx ends.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()

		close(d.done)
		d.wg.Wait()
	})
}

// Dropped counts jobs rejected because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Failed counts buffered jobs the queue rejected.
func (d *Dispatcher) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}
