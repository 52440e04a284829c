package workflow

import (
	"context"
	"log/slog"
	"time"

	"tunecache/internal/jobs"
	"tunecache/internal/logging"
)

// StaleReporter logs processing records whose heartbeat has expired. Stale
// records stay untouched; the next request for one of them takes it over.
type StaleReporter struct {
	store      jobs.Repository
	logger     *slog.Logger
	staleAfter time.Duration
	interval   time.Duration
	now        func() time.Time
}

// NewStaleReporter constructs a reporter. A non-positive interval reports
// once at start only.
func NewStaleReporter(store jobs.Repository, logger *slog.Logger, staleAfter, interval time.Duration) *StaleReporter {
	return &StaleReporter{
		store:      store,
		logger:     logging.NewComponentLogger(logger, "workflow-stale"),
		staleAfter: staleAfter,
		interval:   interval,
		now:        time.Now,
	}
}

// Check counts stale records once and logs the result.
func (r *StaleReporter) Check(ctx context.Context) (int, error) {
	if r.staleAfter <= 0 {
		return 0, nil
	}
	count, err := r.store.CountStale(ctx, r.now().Add(-r.staleAfter))
	if err != nil {
		return 0, err
	}
	if count > 0 {
		logging.WarnWithContext(r.logger, "stale processing records detected", "stale_processing",
			logging.Int("count", count),
			logging.Duration("stale_after", r.staleAfter),
			logging.String(logging.FieldImpact, "requests for these items will restart production"),
			logging.String(logging.FieldErrorHint, "check for crashed workers or hung downloads"),
		)
	}
	return count, nil
}

// Run reports immediately and then on every interval until ctx is done.
func (r *StaleReporter) Run(ctx context.Context) {
	r.checkAndLog(ctx)
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.checkAndLog(ctx)
		}
	}
}

func (r *StaleReporter) checkAndLog(ctx context.Context) {
	if _, err := r.Check(ctx); err != nil && ctx.Err() == nil {
		logging.WarnWithContext(r.logger, "stale record check failed", "stale_check_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale records are not reported"),
			logging.String(logging.FieldErrorHint, "check record store connectivity"),
		)
	}
}
