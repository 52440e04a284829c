package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Get fetches the record for contentID, returning nil when absent.
func (s *Store) Get(ctx context.Context, contentID string) (*Record, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE content_id = ?`,
		contentID,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// Create inserts a processing record owned by attempt. The insert is a no-op
// when the content id already exists, in which case ErrExists is returned.
func (s *Store) Create(ctx context.Context, contentID string, meta Metadata, attempt string) error {
	contentID = strings.TrimSpace(contentID)
	if contentID == "" {
		return errors.New("create record: content id is required")
	}
	if attempt == "" {
		return errors.New("create record: attempt token is required")
	}
	now := nowString()
	res, err := s.execWithRetry(ctx,
		`INSERT INTO records (content_id, title, thumbnail_url, channel, duration, state, attempt, attempts, last_heartbeat, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
         ON CONFLICT(content_id) DO NOTHING`,
		contentID,
		meta.Title,
		meta.ThumbnailURL,
		meta.Channel,
		meta.Duration,
		StateProcessing,
		attempt,
		now,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create record: rows affected: %w", err)
	}
	if affected == 0 {
		return ErrExists
	}
	return nil
}

// EnrichMetadata fills empty descriptive fields. Existing values are kept and
// updated_at is left alone so enrichment never masks a stale heartbeat.
func (s *Store) EnrichMetadata(ctx context.Context, contentID string, meta Metadata) error {
	if meta.IsZero() {
		return nil
	}
	if _, err := s.execWithRetry(ctx,
		`UPDATE records SET
             title = CASE WHEN title = '' THEN ? ELSE title END,
             thumbnail_url = CASE WHEN thumbnail_url = '' THEN ? ELSE thumbnail_url END,
             channel = CASE WHEN channel = '' THEN ? ELSE channel END,
             duration = CASE WHEN duration = '' THEN ? ELSE duration END
         WHERE content_id = ?`,
		meta.Title,
		meta.ThumbnailURL,
		meta.Channel,
		meta.Duration,
		contentID,
	); err != nil {
		return fmt.Errorf("enrich metadata: %w", err)
	}
	return nil
}

// List returns records in the requested states, newest first.
func (s *Store) List(ctx context.Context, states ...State) ([]*Record, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + recordColumns + ` FROM records`
	args := make([]any, 0, len(states))
	if len(states) > 0 {
		query += ` WHERE state IN (` + makePlaceholders(len(states)) + `)`
		for _, st := range states {
			args = append(args, st)
		}
	}
	query += ` ORDER BY updated_at DESC, content_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Stats counts records per state. States with no records are reported as zero.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM records GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("record stats: %w", err)
	}
	defer rows.Close()

	stats := make(Stats, len(allStates))
	for _, st := range allStates {
		stats[st] = 0
	}
	for rows.Next() {
		var (
			state string
			count int
		)
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[State(state)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

// CountStale counts processing records whose last activity predates cutoff.
func (s *Store) CountStale(ctx context.Context, cutoff time.Time) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE state = ? AND COALESCE(last_heartbeat, updated_at) < ?`,
		StateProcessing,
		formatTime(cutoff),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count stale records: %w", err)
	}
	return count, nil
}

// PurgeFailed deletes every failed record.
func (s *Store) PurgeFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM records WHERE state = ?`, StateFailed)
	if err != nil {
		return 0, fmt.Errorf("purge failed records: %w", err)
	}
	return res.RowsAffected()
}
