package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"tunecache/internal/api"
	"tunecache/internal/config"
	"tunecache/internal/deps"
	"tunecache/internal/jobs"
	"tunecache/internal/logging"
	"tunecache/internal/preflight"
	"tunecache/internal/workflow"
)

// Daemon hosts the API and the production worker pool and enforces
// single-instance execution per state directory.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    jobs.Repository
	pool     *workflow.Pool
	records  *api.RecordService
	reporter *workflow.StaleReporter
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Store        string
	StorePath    string
	LockFilePath string
	Stats        map[string]int
	Stale        int
	Pool         workflow.PoolStats
	Dependencies []deps.Status
	Components   []workflow.ComponentHealth
}

// New constructs a daemon around initialized dependencies. The play service
// answers /play; the pool must be the one the orchestrator submits to.
func New(cfg *config.Config, store jobs.Repository, pool *workflow.Pool, play *api.PlayService, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || pool == nil || play == nil {
		return nil, errors.New("daemon requires config, store, worker pool, and play service")
	}
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		pool:     pool,
		records:  api.NewRecordService(store),
		reporter: workflow.NewStaleReporter(store, logger, cfg.StaleAfter(), cfg.ReaperInterval()),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	d.api = newAPIServer(cfg, d, play, logger)
	return d, nil
}

// Start acquires the daemon lock, starts the worker pool, and begins serving
// the API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tunecache daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.pool.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start worker pool: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		cancel()
		d.pool.Stop()
		_ = d.lock.Unlock()
		return err
	}

	d.cancel = cancel
	d.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		d.reporter.Run(runCtx)
	}(d.done)

	d.running.Store(true)
	d.logger.Info("tunecache daemon started",
		logging.String("lock", d.lockPath),
		logging.String("store", d.store.Backend()),
		logging.String("api", d.api.address()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop stops serving, drains the worker pool, and releases the daemon lock.
// Queued production tasks are failed so the next request retries them.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.pool.Stop()
	if d.done != nil {
		<-d.done
		d.done = nil
	}
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next start may report another instance"),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("tunecache daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddress returns the address the API listens on, or "" when stopped.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Store:        d.store.Backend(),
		LockFilePath: d.lockPath,
		Pool:         d.pool.Stats(),
		Dependencies: preflight.CheckSystemDeps(d.cfg),
	}
	if pathed, ok := d.store.(interface{ Path() string }); ok {
		status.StorePath = pathed.Path()
	}

	stats, err := d.records.Stats(ctx)
	if err != nil {
		status.Components = append(status.Components, workflow.Unhealthy("store", err.Error()))
	} else {
		status.Stats = stats
		status.Components = append(status.Components, workflow.Healthy("store"))
		if stale, err := d.records.Stale(ctx, d.cfg.StaleAfter()); err == nil {
			status.Stale = stale
		}
	}

	if status.Running {
		status.Components = append(status.Components, workflow.Healthy("worker-pool"))
	} else {
		status.Components = append(status.Components, workflow.Unhealthy("worker-pool", "not running"))
	}
	for _, result := range preflight.RunAll(ctx, d.cfg) {
		if result.Passed {
			status.Components = append(status.Components, workflow.ComponentHealth{Name: result.Name, Ready: true, Detail: result.Detail})
			continue
		}
		status.Components = append(status.Components, workflow.Unhealthy(result.Name, result.Detail))
	}
	return status
}

// Health converts Status into its API payload.
func (d *Daemon) Health(ctx context.Context) api.HealthResponse {
	status := d.Status(ctx)
	return api.HealthResponse{
		Running:      status.Running,
		PID:          status.PID,
		Version:      api.Version,
		Store:        status.Store,
		StorePath:    status.StorePath,
		LockFilePath: status.LockFilePath,
		Stats:        status.Stats,
		Stale:        status.Stale,
		Pool:         api.FromPoolStats(status.Pool),
		Dependencies: api.FromDependencies(status.Dependencies),
		Components:   status.Components,
	}
}
