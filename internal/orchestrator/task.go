package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tunecache/internal/jobs"
	"tunecache/internal/logging"
	"tunecache/internal/notifications"
	"tunecache/internal/services"
)

// task produces, publishes, and records the artifact for one attempt.
type task struct {
	o         *Orchestrator
	contentID string
	title     string
	attempt   string
}

func (t *task) run(ctx context.Context) {
	ctx = services.WithContentID(ctx, t.contentID)
	logger := logging.WithContext(ctx, t.o.logger).With(logging.String(logging.FieldAttempt, t.attempt))
	started := time.Now()

	workCtx, cancelWork := context.WithCancel(ctx)
	defer cancelWork()
	hbCtx, stopHB := context.WithCancel(workCtx)
	hbDone := make(chan struct{})
	go func() {
		defer close(hbDone)
		t.o.heartbeat.Run(hbCtx, t.contentID, t.attempt, cancelWork)
	}()
	var stopOnce sync.Once
	stopHeartbeat := func() {
		stopOnce.Do(func() {
			stopHB()
			<-hbDone
		})
	}
	defer stopHeartbeat()

	defer func() {
		if err := t.o.producer.Discard(t.contentID, t.attempt); err != nil {
			logging.WarnWithContext(logger, "artifact cleanup failed", "artifact_cleanup_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "staging directory keeps this attempt's files"),
				logging.String(logging.FieldErrorHint, "remove the file from staging_dir manually"),
			)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			stopHeartbeat()
			t.fail(ctx, logger, "production", fmt.Errorf("production panicked: %v", r))
		}
	}()

	logger.Info("production task running", logging.String(logging.FieldEventType, "task_started"))

	path, err := t.o.producer.Produce(services.WithStage(workCtx, "produce"), t.contentID, t.attempt)
	if err != nil {
		stopHeartbeat()
		t.fail(ctx, logger, "produce", err)
		return
	}
	logger.Info("artifact produced",
		logging.String("path", path),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldStage, "produce"),
	)

	url, err := t.o.publisher.Publish(services.WithStage(workCtx, "publish"), path)
	if err != nil {
		stopHeartbeat()
		t.fail(ctx, logger, "publish", err)
		return
	}

	stopHeartbeat()
	writeCtx, cancel := outcomeContext(ctx)
	defer cancel()
	err = t.o.store.Complete(writeCtx, t.contentID, t.attempt, url)
	switch {
	case err == nil:
		logger.Info("artifact published",
			logging.String("url", url),
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldEventType, "production_completed"),
		)
		t.notify(writeCtx, logger, notifications.EventProductionCompleted, notifications.Payload{"url": url})
	case errors.Is(err, jobs.ErrConflict):
		t.discarded(logger, "completion")
	default:
		logging.ErrorWithContext(logger, "failed to record completion", "complete_unrecorded",
			logging.Error(err),
			logging.String("url", url),
			logging.String(logging.FieldErrorHint, "record stays processing until it goes stale and is retried"),
		)
	}
}

// dropped records a task the pool discarded before running it.
func (t *task) dropped(err error) {
	ctx := services.WithContentID(context.Background(), t.contentID)
	logger := logging.WithContext(ctx, t.o.logger).With(logging.String(logging.FieldAttempt, t.attempt))
	t.fail(ctx, logger, "queue", fmt.Errorf("production interrupted: %w", err))
}

func (t *task) fail(ctx context.Context, logger *slog.Logger, stage string, cause error) {
	detail := cause.Error()
	writeCtx, cancel := outcomeContext(ctx)
	defer cancel()
	err := t.o.store.Fail(writeCtx, t.contentID, t.attempt, detail)
	switch {
	case err == nil:
		logging.ErrorWithContext(logger, "production failed", "production_failed",
			logging.String(logging.FieldStage, stage),
			logging.Error(cause),
			logging.String(logging.FieldErrorHint, services.ErrorHint(cause)),
		)
		t.notify(writeCtx, logger, notifications.EventProductionFailed, notifications.Payload{"stage": stage, "error": detail})
	case errors.Is(err, jobs.ErrConflict):
		t.discarded(logger, "failure")
	default:
		logging.ErrorWithContext(logger, "failed to record production failure", "fail_unrecorded",
			logging.Error(err),
			logging.String("cause", detail),
			logging.String(logging.FieldErrorHint, "record stays processing until it goes stale and is retried"),
		)
	}
}

// notify sends a production outcome. Delivery failures only cost the message.
func (t *task) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	payload["contentID"] = t.contentID
	payload["title"] = t.title
	if err := t.o.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "operator is not told about this outcome"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

func (t *task) discarded(logger *slog.Logger, what string) {
	logging.WarnWithContext(logger, "attempt no longer owns record; result discarded", "result_discarded",
		logging.String("result", what),
		logging.String(logging.FieldImpact, "the newer attempt decides the record's outcome"),
		logging.String(logging.FieldErrorHint, "the record was taken over after its heartbeat went stale"),
	)
}

// outcomeContext detaches the final store write from task cancellation so a
// shutdown still records what happened.
func outcomeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), outcomeWriteTimeout)
}
