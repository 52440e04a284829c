package jobs

import (
	"database/sql"
	"errors"
	"time"
)

const recordColumns = "content_id, title, thumbnail_url, channel, duration, state, artifact_url, error_detail, attempt, attempts, last_heartbeat, created_at, updated_at"

// timestampLayout is fixed width so stored timestamps compare correctly as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func nowString() string {
	return formatTime(time.Now())
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		contentID        string
		title            string
		thumbnail        string
		channel          string
		duration         string
		stateStr         string
		artifactURL      sql.NullString
		errorDetail      sql.NullString
		attempt          string
		attempts         int
		lastHeartbeatRaw sql.NullString
		createdRaw       string
		updatedRaw       string
	)

	if err := scanner.Scan(
		&contentID,
		&title,
		&thumbnail,
		&channel,
		&duration,
		&stateStr,
		&artifactURL,
		&errorDetail,
		&attempt,
		&attempts,
		&lastHeartbeatRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	rec := &Record{
		ContentID:    contentID,
		Title:        title,
		ThumbnailURL: thumbnail,
		Channel:      channel,
		Duration:     duration,
		State:        State(stateStr),
		ArtifactURL:  artifactURL.String,
		ErrorDetail:  errorDetail.String,
		Attempt:      attempt,
		Attempts:     attempts,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		rec.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			rec.LastHeartbeat = &heartbeat
		}
	}
	return rec, nil
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
