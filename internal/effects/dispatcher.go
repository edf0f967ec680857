// Package effects runs the side effects of committed scheduling decisions
// (payments, notifications, video rooms) on a background worker pool.
// A failing effect is logged and never reported back to the caller.
package effects

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"session-scheduler/pkg/sl"
)

type Job struct {
	Name      string
	SessionID string
	Run       func(ctx context.Context) error
}

type Dispatcher struct {
	log        *slog.Logger
	size       int
	jobs       chan Job
	jobTimeout time.Duration

	mu      sync.RWMutex
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewDispatcher(log *slog.Logger, size, queueSize int, jobTimeout time.Duration) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	if queueSize <= 0 {
		queueSize = size
	}
	return &Dispatcher{
		log:        log,
		size:       size,
		jobs:       make(chan Job, queueSize),
		jobTimeout: jobTimeout,
	}
}

// Start launches the workers. They run until ctx is done or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	for i := 0; i < d.size; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.jobs:
			d.run(ctx, id, job)
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, worker int, job Job) {
	const op = "effects.Dispatcher.run"

	log := d.log.With(
		slog.String("op", op),
		slog.Int("worker", worker),
		slog.String("job", job.Name),
		slog.String("session_id", job.SessionID),
	)

	// In-flight jobs outlive Stop; only the job timeout bounds them.
	ctx = context.WithoutCancel(ctx)
	if d.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.jobTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("side effect panicked", slog.Any("panic", r))
		}
	}()

	if err := job.Run(ctx); err != nil {
		log.Error("side effect failed", sl.Err(err))
		return
	}

	log.Debug("side effect done")
}

// Dispatch queues a job without blocking. When the queue is full or the
// dispatcher is stopped the job is dropped and logged.
func (d *Dispatcher) Dispatch(job Job) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.log.Warn("dispatcher stopped, dropping side effect", slog.String("job", job.Name), slog.String("session_id", job.SessionID))
		return
	}

	select {
	case d.jobs <- job:
	default:
		d.log.Error("side effect queue is full, dropping job", slog.String("job", job.Name), slog.String("session_id", job.SessionID))
	}
}

// Stop lets the workers finish the queued jobs and waits for them, bounded by ctx.
func (d *Dispatcher) Stop(ctx context.Context) {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		for len(d.jobs) > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		d.log.Warn("side effects left in queue at shutdown", slog.Int("pending", len(d.jobs)))
	}

	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}
