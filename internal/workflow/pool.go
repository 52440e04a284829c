package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"tunecache/internal/logging"
)

var (
	// ErrPoolStopped is returned by Submit when the pool is not running.
	ErrPoolStopped = errors.New("worker pool stopped")
	// ErrQueueFull is returned by Submit when the submission queue is saturated.
	ErrQueueFull = errors.New("worker pool queue full")
)

// Task is a unit of background work.
type Task struct {
	// Name identifies the task in logs.
	Name string
	// Run performs the work. The context is cancelled when the pool stops.
	Run func(ctx context.Context)
	// Dropped is called instead of Run when the pool stops before the task
	// was picked up. It may be nil.
	Dropped func(err error)
}

// PoolStats reports the pool's current load.
type PoolStats struct {
	Workers int
	Running int
	Queued  int
}

// Pool executes submitted tasks on a fixed number of workers.
type Pool struct {
	workers int
	logger  *slog.Logger

	mu      sync.RWMutex
	queue   chan Task
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	active atomic.Int64
}

// NewPool constructs a pool with the given worker count and queue capacity.
func NewPool(workers, queueSize int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Pool{
		workers: workers,
		logger:  logging.NewComponentLogger(logger, "workflow-pool"),
		queue:   make(chan Task, queueSize),
	}
}

// Start launches the workers. Tasks run under a context derived from ctx.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("worker pool already running")
	}
	if p.queue == nil {
		return ErrPoolStopped
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.worker(runCtx, i, p.queue)
	}
	p.logger.Info("worker pool started",
		logging.Int("workers", p.workers),
		logging.Int("queue_size", cap(p.queue)),
		logging.String(logging.FieldEventType, "pool_started"),
	)
	return nil
}

// Submit enqueues task without blocking.
func (p *Pool) Submit(task Task) error {
	if task.Run == nil {
		return fmt.Errorf("submit %q: task has no run function", task.Name)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.running {
		return ErrPoolStopped
	}
	select {
	case p.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop cancels running tasks, waits for them to return, and hands every
// task still queued to its Dropped callback. A stopped pool cannot restart.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	queue := p.queue
	p.queue = nil
	close(queue)
	p.mu.Unlock()

	cancel()
	p.wg.Wait()

	dropped := 0
	for task := range queue {
		dropped++
		if task.Dropped != nil {
			task.Dropped(ErrPoolStopped)
		}
	}
	p.logger.Info("worker pool stopped",
		logging.Int("dropped", dropped),
		logging.String(logging.FieldEventType, "pool_stopped"),
	)
}

// Stats reports the number of workers, running tasks, and queued tasks.
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	queued := 0
	if p.queue != nil {
		queued = len(p.queue)
	}
	return PoolStats{
		Workers: p.workers,
		Running: int(p.active.Load()),
		Queued:  queued,
	}
}

func (p *Pool) worker(ctx context.Context, index int, queue <-chan Task) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-queue:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				if task.Dropped != nil {
					task.Dropped(ErrPoolStopped)
				}
				return
			}
			p.execute(ctx, index, task)
		}
	}
}

func (p *Pool) execute(ctx context.Context, index int, task Task) {
	p.active.Add(1)
	defer p.active.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(p.logger, "task panicked", "task_panic",
				logging.String("task", task.Name),
				logging.Int("worker", index),
				logging.Any("panic", r),
				logging.String(logging.FieldErrorHint, "report the panic; the record will be retried on the next request"),
			)
		}
	}()
	task.Run(ctx)
}
