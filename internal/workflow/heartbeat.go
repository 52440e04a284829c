package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tunecache/internal/jobs"
	"tunecache/internal/logging"
)

// HeartbeatMonitor refreshes record heartbeats on behalf of running tasks.
type HeartbeatMonitor struct {
	store    jobs.Repository
	logger   *slog.Logger
	interval time.Duration
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(store jobs.Repository, logger *slog.Logger, interval time.Duration) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		store:    store,
		logger:   logging.NewComponentLogger(logger, "workflow-heartbeat"),
		interval: interval,
	}
}

// Run updates the heartbeat of contentID under attempt until ctx is done.
// When the store reports that attempt no longer owns the record, Run calls
// lost and returns.
func (h *HeartbeatMonitor) Run(ctx context.Context, contentID, attempt string, lost func()) {
	if h == nil || h.interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, h.logger)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := h.store.Heartbeat(ctx, contentID, attempt)
			switch {
			case err == nil:
			case errors.Is(err, jobs.ErrConflict):
				logging.WarnWithContext(logger, "record ownership lost; abandoning attempt", "ownership_lost",
					logging.String(logging.FieldAttempt, attempt),
					logging.String(logging.FieldImpact, "this attempt's result will be discarded"),
					logging.String(logging.FieldErrorHint, "another request took over a stale record"),
				)
				if lost != nil {
					lost()
				}
				return
			case errors.Is(err, context.Canceled):
				logger.Debug("heartbeat update cancelled")
				return
			default:
				logging.WarnWithContext(logger, "heartbeat update failed", "heartbeat_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "record may be reported stale"),
					logging.String(logging.FieldErrorHint, "check record store connectivity"),
				)
			}
		}
	}
}
