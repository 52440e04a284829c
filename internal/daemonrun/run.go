// Package daemonrun assembles and runs the tunecache daemon process.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"tunecache/internal/api"
	"tunecache/internal/catbox"
	"tunecache/internal/config"
	"tunecache/internal/daemon"
	"tunecache/internal/jobs"
	"tunecache/internal/jobs/mongostore"
	"tunecache/internal/logging"
	"tunecache/internal/notifications"
	"tunecache/internal/orchestrator"
	"tunecache/internal/preflight"
	"tunecache/internal/workflow"
	"tunecache/internal/ytdlp"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the tunecache daemon and blocks until ctx is cancelled or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("tunecache-%s.log", runID))

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update tunecache.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "tunecache-*.log", Exclude: []string{logPath}},
	)
	logPreflight(signalCtx, logger, cfg)

	pidPath := filepath.Join(cfg.Paths.StateDir, "tunecached.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := OpenStore(signalCtx, cfg, logger)
	if err != nil {
		logger.Error("open record store", logging.Error(err))
		return err
	}

	resolver, err := ytdlp.New(cfg)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create yt-dlp client: %w", err)
	}
	publisher, err := catbox.New(cfg)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create publisher: %w", err)
	}

	pool := workflow.NewPool(cfg.Workflow.Workers, cfg.Workflow.QueueSize, logger)
	orch, err := orchestrator.New(store, resolver, publisher, pool, logger, orchestrator.Options{
		StaleAfter:        cfg.StaleAfter(),
		HeartbeatInterval: cfg.HeartbeatInterval(),
		Notifier:          notifications.NewService(cfg),
	})
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create orchestrator: %w", err)
	}
	play := api.NewPlayService(resolver, orch, logger)

	d, err := daemon.New(cfg, store, pool, play, logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check api_bind, the state directory lock, and record store access"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("tunecache daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

// OpenStore opens the configured job record backend.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (jobs.Repository, error) {
	if cfg.UsesMongo() {
		store, err := mongostore.Open(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open mongo record store: %w", err)
		}
		if logger != nil {
			logger.Info("record store opened",
				logging.String("backend", store.Backend()),
				logging.String("database", cfg.Store.MongoDatabase),
				logging.String("collection", cfg.Store.MongoCollection),
			)
		}
		return store, nil
	}
	store, err := jobs.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite record store: %w", err)
	}
	if logger != nil {
		logger.Info("record store opened",
			logging.String("backend", store.Backend()),
			logging.String("path", store.Path()),
		)
	}
	return store, nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "tunecache.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// logPreflight records the dependency snapshot and every failed local check.
func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	statuses := preflight.CheckSystemDeps(cfg)
	attrs := []any{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, status := range statuses {
		attrs = append(attrs, logging.Bool(status.Name+"_available", status.Available))
	}
	attrs = append(attrs,
		logging.Bool("cookies_configured", cfg.YTDLP.CookiesFile != ""),
		logging.Bool("accelerator_enabled", cfg.YTDLP.Accelerator),
		logging.String("store_backend", cfg.Store.Backend),
	)
	logger.Info("dependency snapshot", attrs...)

	for _, status := range statuses {
		if status.Satisfied() {
			continue
		}
		logging.WarnWithContext(logger, "required binary missing", "dependency_missing",
			logging.String("dependency", status.Name),
			logging.String("detail", status.Detail),
			logging.String(logging.FieldImpact, status.Description),
			logging.String(logging.FieldErrorHint, "install "+status.Name+" or fix its configured path"),
		)
	}
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "requests depending on this check will fail"),
			logging.String(logging.FieldErrorHint, "fix the configuration and restart the daemon"),
		)
	}
}
