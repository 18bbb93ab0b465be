package worker

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Job is a unit of work run by the Pool.
type Job func(ctx context.Context) error

var (
	// ErrPoolClosed is returned when a job is submitted after Close.
	ErrPoolClosed = errors.New("worker pool closed")
	// ErrQueueFull is returned by TrySubmit when no queue slot is free.
	ErrQueueFull = errors.New("worker pool queue full")
)

// Pool runs jobs on a fixed number of goroutines. Job errors and panics are
// logged and never reach the submitter.
type Pool struct {
	jobs    chan Job
	quit    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	workers int
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a pool with the given number of workers and queue capacity.
func NewPool(workers, queue int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers * 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		jobs:    make(chan Job, queue),
		quit:    make(chan struct{}),
		workers: workers,
		logger:  logger,
	}
}

// Start launches the workers. They run until ctx is done or the pool is
// closed and its queue drained.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-p.jobs:
					if !ok {
						return
					}
					p.run(ctx, job)
				}
			}
		}()
	}
}

func (p *Pool) run(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Worker job panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	if err := job(ctx); err != nil {
		p.logger.Warn("Worker job failed", "error", err)
	}
}

// Submit enqueues job, waiting for a free slot until ctx is done or the
// pool is closed.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		return nil
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit enqueues job only if a queue slot is free right now.
func (p *Pool) TrySubmit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		return nil
	case <-p.quit:
		return ErrPoolClosed
	default:
		return ErrQueueFull
	}
}

// Close stops accepting jobs and waits for queued jobs to finish.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.quit)
		p.mu.Lock()
		p.closed = true
		close(p.jobs)
		p.mu.Unlock()
	})
	p.wg.Wait()
}
