package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"tunecache/internal/jobs"
	"tunecache/internal/logging"
	"tunecache/internal/notifications"
	"tunecache/internal/services"
	"tunecache/internal/workflow"
)

// maxConflictRounds bounds how often a request re-reads a record after
// losing a conditional write.
const maxConflictRounds = 3

// outcomeWriteTimeout bounds the final store write of a production task.
const outcomeWriteTimeout = 15 * time.Second

// Options tunes staleness and liveness tracking.
type Options struct {
	// StaleAfter is how long a processing record may go without a heartbeat
	// before a request may take it over. Zero disables takeover.
	StaleAfter time.Duration
	// HeartbeatInterval is how often a running task refreshes its record.
	HeartbeatInterval time.Duration
	// Now overrides the clock (tests).
	Now func() time.Time
	// NewAttempt overrides attempt token generation (tests).
	NewAttempt func() string
	// Notifier receives production outcomes. Nil disables notifications.
	Notifier notifications.Service
}

// Orchestrator implements the cache-or-produce decision for content ids.
type Orchestrator struct {
	store     jobs.Repository
	producer  Producer
	publisher Publisher
	pool      Submitter
	heartbeat *workflow.HeartbeatMonitor
	notifier  notifications.Service
	logger    *slog.Logger

	staleAfter time.Duration
	now        func() time.Time
	newAttempt func() string
}

// New wires an orchestrator. All collaborators are required.
func New(store jobs.Repository, producer Producer, publisher Publisher, pool Submitter, logger *slog.Logger, opts Options) (*Orchestrator, error) {
	switch {
	case store == nil:
		return nil, errors.New("orchestrator: store is required")
	case producer == nil:
		return nil, errors.New("orchestrator: producer is required")
	case publisher == nil:
		return nil, errors.New("orchestrator: publisher is required")
	case pool == nil:
		return nil, errors.New("orchestrator: pool is required")
	}
	o := &Orchestrator{
		store:      store,
		producer:   producer,
		publisher:  publisher,
		pool:       pool,
		notifier:   opts.Notifier,
		logger:     logging.NewComponentLogger(logger, "orchestrator"),
		staleAfter: opts.StaleAfter,
		now:        opts.Now,
		newAttempt: opts.NewAttempt,
	}
	if opts.HeartbeatInterval > 0 {
		o.heartbeat = workflow.NewHeartbeatMonitor(store, logger, opts.HeartbeatInterval)
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newAttempt == nil {
		o.newAttempt = uuid.NewString
	}
	if o.notifier == nil {
		o.notifier = notifications.NewService(nil)
	}
	return o, nil
}

// ResolveOrEnqueue returns the cached artifact for contentID or makes sure
// exactly one production task is working on it.
func (o *Orchestrator) ResolveOrEnqueue(ctx context.Context, contentID string, meta jobs.Metadata) (Outcome, error) {
	contentID = strings.TrimSpace(contentID)
	if contentID == "" {
		return Outcome{}, services.Wrap(services.ErrValidation, "orchestrate", "content id", "content id is required", nil)
	}
	ctx = services.WithContentID(ctx, contentID)
	logger := logging.WithContext(ctx, o.logger)

	var last *jobs.Record
	for round := 0; round < maxConflictRounds; round++ {
		rec, err := o.store.Get(ctx, contentID)
		if err != nil {
			return Outcome{}, fmt.Errorf("read record: %w", err)
		}
		if rec == nil {
			outcome, retry, err := o.start(ctx, contentID, meta)
			if retry {
				logger.Debug("create lost to concurrent request", logging.Int("round", round+1))
				continue
			}
			return outcome, err
		}
		last = rec
		o.enrich(ctx, logger, rec, meta)

		switch rec.State {
		case jobs.StateCompleted:
			logger.Debug("cache hit", logging.String(logging.FieldEventType, "cache_hit"))
			return Outcome{Kind: KindCompleted, Record: rec}, nil
		case jobs.StateProcessing:
			if !rec.IsStale(o.now(), o.staleAfter) {
				return Outcome{Kind: KindProcessing, Record: rec}, nil
			}
			outcome, retry, err := o.takeOver(ctx, rec)
			if retry {
				logger.Debug("takeover lost to concurrent request", logging.Int("round", round+1))
				continue
			}
			return outcome, err
		case jobs.StateFailed:
			outcome, retry, err := o.retry(ctx, rec)
			if retry {
				logger.Debug("retry lost to concurrent request", logging.Int("round", round+1))
				continue
			}
			return outcome, err
		default:
			return Outcome{}, fmt.Errorf("record %s has unknown state %q", contentID, rec.State)
		}
	}

	logger.Info("conflict rounds exhausted; reporting in-flight work",
		logging.Int("rounds", maxConflictRounds),
		logging.String(logging.FieldEventType, "conflict_rounds_exhausted"),
	)
	return Outcome{Kind: KindProcessing, Record: last}, nil
}

// start creates the record; retry reports a lost create.
func (o *Orchestrator) start(ctx context.Context, contentID string, meta jobs.Metadata) (Outcome, bool, error) {
	attempt := o.newAttempt()
	err := o.store.Create(ctx, contentID, meta, attempt)
	if errors.Is(err, jobs.ErrExists) {
		return Outcome{}, true, nil
	}
	if err != nil {
		return Outcome{}, false, fmt.Errorf("create record: %w", err)
	}
	now := o.now().UTC()
	rec := &jobs.Record{
		ContentID:     contentID,
		Title:         meta.Title,
		ThumbnailURL:  meta.ThumbnailURL,
		Channel:       meta.Channel,
		Duration:      meta.Duration,
		State:         jobs.StateProcessing,
		Attempt:       attempt,
		Attempts:      1,
		LastHeartbeat: &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := o.submit(ctx, rec, attempt); err != nil {
		return Outcome{}, false, err
	}
	logging.WithContext(ctx, o.logger).Info("production started",
		logging.String(logging.FieldAttempt, attempt),
		logging.String(logging.FieldEventType, "production_started"),
	)
	return Outcome{Kind: KindStarted, Record: rec}, false, nil
}

func (o *Orchestrator) retry(ctx context.Context, rec *jobs.Record) (Outcome, bool, error) {
	attempt := o.newAttempt()
	previous := rec.ErrorDetail
	err := o.store.Retry(ctx, rec.ContentID, attempt)
	if errors.Is(err, jobs.ErrConflict) {
		return Outcome{}, true, nil
	}
	if err != nil {
		return Outcome{}, false, fmt.Errorf("retry record: %w", err)
	}
	now := o.now().UTC()
	rec.State = jobs.StateProcessing
	rec.ErrorDetail = ""
	rec.Attempt = attempt
	rec.Attempts++
	rec.LastHeartbeat = &now
	rec.UpdatedAt = now
	if err := o.submit(ctx, rec, attempt); err != nil {
		return Outcome{}, false, err
	}
	logging.WithContext(ctx, o.logger).Info("production restarted after failure",
		logging.String(logging.FieldAttempt, attempt),
		logging.Int("attempts", rec.Attempts),
		logging.String("previous_error", previous),
		logging.String(logging.FieldEventType, "production_retry"),
	)
	return Outcome{Kind: KindRetrying, Record: rec, PreviousError: previous}, false, nil
}

func (o *Orchestrator) takeOver(ctx context.Context, rec *jobs.Record) (Outcome, bool, error) {
	attempt := o.newAttempt()
	previousAttempt := rec.Attempt
	lastActivity := rec.LastActivity()
	cutoff := o.now().Add(-o.staleAfter)
	err := o.store.TakeOver(ctx, rec.ContentID, previousAttempt, attempt, cutoff)
	if errors.Is(err, jobs.ErrConflict) {
		return Outcome{}, true, nil
	}
	if err != nil {
		return Outcome{}, false, fmt.Errorf("take over record: %w", err)
	}
	now := o.now().UTC()
	rec.Attempt = attempt
	rec.Attempts++
	rec.LastHeartbeat = &now
	rec.UpdatedAt = now
	if err := o.submit(ctx, rec, attempt); err != nil {
		return Outcome{}, false, err
	}
	logging.WarnWithContext(logging.WithContext(ctx, o.logger), "stale processing record taken over", "stale_takeover",
		logging.String(logging.FieldAttempt, attempt),
		logging.String("previous_attempt", previousAttempt),
		logging.Duration("silent_for", o.now().Sub(lastActivity)),
		logging.String(logging.FieldImpact, "production restarted; the previous attempt's result will be discarded"),
		logging.String(logging.FieldErrorHint, "check for crashed or hung production tasks"),
	)
	return Outcome{Kind: KindRetrying, Record: rec, PreviousError: StaleReclaimedDetail}, false, nil
}

// submit hands the production task to the pool. When the pool refuses it the
// record is failed so the next request can retry.
func (o *Orchestrator) submit(ctx context.Context, rec *jobs.Record, attempt string) error {
	t := &task{o: o, contentID: rec.ContentID, title: rec.Title, attempt: attempt}
	err := o.pool.Submit(workflow.Task{
		Name:    "produce:" + rec.ContentID,
		Run:     t.run,
		Dropped: t.dropped,
	})
	if err == nil {
		return nil
	}
	detail := "submit production task: " + err.Error()
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), outcomeWriteTimeout)
	defer cancel()
	if failErr := o.store.Fail(writeCtx, rec.ContentID, attempt, detail); failErr != nil && !errors.Is(failErr, jobs.ErrConflict) {
		logging.ErrorWithContext(logging.WithContext(ctx, o.logger), "failed to record submission failure", "submit_failure_unrecorded",
			logging.Error(failErr),
			logging.String(logging.FieldErrorHint, "record stays processing until it goes stale"),
		)
	}
	return services.Wrap(services.ErrTransient, "orchestrate", "submit", "production task rejected", err)
}

// enrich fills empty metadata on the stored record. Failures only cost
// metadata, so they are logged and ignored.
func (o *Orchestrator) enrich(ctx context.Context, logger *slog.Logger, rec *jobs.Record, meta jobs.Metadata) {
	if !rec.NeedsEnrichment(meta) {
		return
	}
	if err := o.store.EnrichMetadata(ctx, rec.ContentID, meta); err != nil {
		logging.WarnWithContext(logger, "metadata enrichment failed", "enrich_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "record keeps its existing metadata"),
			logging.String(logging.FieldErrorHint, "check record store connectivity"),
		)
		return
	}
	if rec.Title == "" {
		rec.Title = meta.Title
	}
	if rec.ThumbnailURL == "" {
		rec.ThumbnailURL = meta.ThumbnailURL
	}
	if rec.Channel == "" {
		rec.Channel = meta.Channel
	}
	if rec.Duration == "" {
		rec.Duration = meta.Duration
	}
}
