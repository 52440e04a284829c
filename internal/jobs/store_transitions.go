package jobs

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Retry moves a failed record back to processing under a new attempt token.
func (s *Store) Retry(ctx context.Context, contentID, attempt string) error {
	if attempt == "" {
		return errors.New("retry record: attempt token is required")
	}
	now := nowString()
	return s.execTransition(ctx, "retry record",
		`UPDATE records
         SET state = ?, error_detail = NULL, artifact_url = NULL, attempt = ?, attempts = attempts + 1,
             last_heartbeat = ?, updated_at = ?
         WHERE content_id = ? AND state = ?`,
		StateProcessing,
		attempt,
		now,
		now,
		contentID,
		StateFailed,
	)
}

// TakeOver reassigns a stale processing record to a new attempt. The previous
// attempt must still own the record and its last activity must predate cutoff.
func (s *Store) TakeOver(ctx context.Context, contentID, previousAttempt, attempt string, cutoff time.Time) error {
	if attempt == "" {
		return errors.New("take over record: attempt token is required")
	}
	now := nowString()
	return s.execTransition(ctx, "take over record",
		`UPDATE records
         SET attempt = ?, attempts = attempts + 1, last_heartbeat = ?, updated_at = ?
         WHERE content_id = ? AND state = ? AND attempt = ?
           AND COALESCE(last_heartbeat, updated_at) < ?`,
		attempt,
		now,
		now,
		contentID,
		StateProcessing,
		previousAttempt,
		formatTime(cutoff),
	)
}

// Complete moves an owned processing record to completed.
func (s *Store) Complete(ctx context.Context, contentID, attempt, artifactURL string) error {
	if strings.TrimSpace(artifactURL) == "" {
		return errors.New("complete record: artifact url is required")
	}
	return s.execTransition(ctx, "complete record",
		`UPDATE records
         SET state = ?, artifact_url = ?, error_detail = NULL, updated_at = ?
         WHERE content_id = ? AND state = ? AND attempt = ?`,
		StateCompleted,
		artifactURL,
		nowString(),
		contentID,
		StateProcessing,
		attempt,
	)
}

// Fail moves an owned processing record to failed with detail.
func (s *Store) Fail(ctx context.Context, contentID, attempt, detail string) error {
	if strings.TrimSpace(detail) == "" {
		detail = DefaultFailureDetail
	}
	return s.execTransition(ctx, "fail record",
		`UPDATE records
         SET state = ?, error_detail = ?, artifact_url = NULL, updated_at = ?
         WHERE content_id = ? AND state = ? AND attempt = ?`,
		StateFailed,
		detail,
		nowString(),
		contentID,
		StateProcessing,
		attempt,
	)
}

// Heartbeat updates the last heartbeat timestamp of an owned processing record.
func (s *Store) Heartbeat(ctx context.Context, contentID, attempt string) error {
	now := nowString()
	return s.execTransition(ctx, "update heartbeat",
		`UPDATE records SET last_heartbeat = ?, updated_at = ?
         WHERE content_id = ? AND state = ? AND attempt = ?`,
		now,
		now,
		contentID,
		StateProcessing,
		attempt,
	)
}
