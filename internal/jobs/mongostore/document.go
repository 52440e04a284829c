package mongostore

import (
	"time"

	"tunecache/internal/jobs"
)

type document struct {
	ContentID     string     `bson:"_id"`
	Title         string     `bson:"title"`
	ThumbnailURL  string     `bson:"thumbnail_url"`
	Channel       string     `bson:"channel"`
	Duration      string     `bson:"duration"`
	State         string     `bson:"state"`
	ArtifactURL   string     `bson:"artifact_url,omitempty"`
	ErrorDetail   string     `bson:"error_detail,omitempty"`
	Attempt       string     `bson:"attempt"`
	Attempts      int        `bson:"attempts"`
	LastHeartbeat *time.Time `bson:"last_heartbeat,omitempty"`
	CreatedAt     time.Time  `bson:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at"`
}

func newDocument(contentID string, meta jobs.Metadata, attempt string, now time.Time) document {
	return document{
		ContentID:     contentID,
		Title:         meta.Title,
		ThumbnailURL:  meta.ThumbnailURL,
		Channel:       meta.Channel,
		Duration:      meta.Duration,
		State:         string(jobs.StateProcessing),
		Attempt:       attempt,
		Attempts:      1,
		LastHeartbeat: &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (d document) record() *jobs.Record {
	rec := &jobs.Record{
		ContentID:    d.ContentID,
		Title:        d.Title,
		ThumbnailURL: d.ThumbnailURL,
		Channel:      d.Channel,
		Duration:     d.Duration,
		State:        jobs.State(d.State),
		ArtifactURL:  d.ArtifactURL,
		ErrorDetail:  d.ErrorDetail,
		Attempt:      d.Attempt,
		Attempts:     d.Attempts,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
	if d.LastHeartbeat != nil {
		hb := d.LastHeartbeat.UTC()
		rec.LastHeartbeat = &hb
	}
	return rec
}
