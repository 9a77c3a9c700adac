package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bryanwahyu/callscore/internal/infra/logging"
)

var (
	ErrQueueFull = errors.New("worker queue is full")
	ErrStopped   = errors.New("worker pool is stopped")
)

// Task is one unit of background work. It owns its context.
type Task func(ctx context.Context)

// Handle identifies a submitted task. The submitter never waits on it.
type Handle struct {
	ID string
}

type job struct {
	handle Handle
	task   Task
}

// Pool runs tasks on a fixed number of goroutines off a bounded queue.
type Pool struct {
	queue   chan job
	workers int
	logger  zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
	once    sync.Once

	// OnPanic is called after a task panic was recovered.
	OnPanic func(h Handle, recovered any)
}

func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Pool{
		queue:   make(chan job, queueSize),
		workers: workers,
		logger:  logging.WithComponent("worker"),
	}
}

// Start launches the workers. Tasks run with a context derived from ctx.
func (p *Pool) Start(ctx context.Context) {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.loop(ctx)
		}
	})
}

// Submit enqueues a task with a fresh id and returns immediately.
func (p *Pool) Submit(t Task) (Handle, error) {
	return p.SubmitWithID(uuid.NewString(), t)
}

// SubmitWithID enqueues a task under a caller-chosen id.
func (p *Pool) SubmitWithID(id string, t Task) (Handle, error) {
	h := Handle{ID: id}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return h, ErrStopped
	}
	select {
	case p.queue <- job{handle: h, task: t}:
		return h, nil
	default:
		return h, ErrQueueFull
	}
}

// Len is the number of queued, not yet started tasks.
func (p *Pool) Len() int { return len(p.queue) }

// Shutdown stops intake and waits for queued and running tasks, or ctx.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker shutdown: %w", ctx.Err())
	}
}

func (p *Pool) loop(ctx context.Context) {
	defer p.wg.Done()
	for j := range p.queue {
		p.run(ctx, j)
	}
}

func (p *Pool) run(ctx context.Context, j job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Str("task_id", j.handle.ID).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("task panicked")
			if p.OnPanic != nil {
				p.OnPanic(j.handle, r)
			}
		}
	}()
	j.task(ctx)
}
