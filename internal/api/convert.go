package api

import (
	"tunecache/internal/deps"
	"tunecache/internal/jobs"
	"tunecache/internal/orchestrator"
	"tunecache/internal/workflow"
)

// FromRecord converts a job record to its API representation.
func FromRecord(rec *jobs.Record) Record {
	if rec == nil {
		return Record{}
	}
	dto := Record{
		ContentID:    rec.ContentID,
		Title:        rec.Title,
		ThumbnailURL: rec.ThumbnailURL,
		Channel:      rec.Channel,
		Duration:     rec.Duration,
		State:        string(rec.State),
		ArtifactURL:  rec.ArtifactURL,
		ErrorDetail:  rec.ErrorDetail,
		Attempt:      rec.Attempt,
		Attempts:     rec.Attempts,
	}
	if rec.LastHeartbeat != nil && !rec.LastHeartbeat.IsZero() {
		dto.LastHeartbeat = rec.LastHeartbeat.UTC().Format(dateTimeFormat)
	}
	if !rec.CreatedAt.IsZero() {
		dto.CreatedAt = rec.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !rec.UpdatedAt.IsZero() {
		dto.UpdatedAt = rec.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromRecords converts a slice of records into API DTOs.
func FromRecords(records []*jobs.Record) []Record {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		out = append(out, FromRecord(rec))
	}
	return out
}

// FromStats keys record counts by state string, including every state.
func FromStats(stats jobs.Stats) map[string]int {
	out := make(map[string]int, len(jobs.AllStates()))
	for _, state := range jobs.AllStates() {
		out[string(state)] = stats[state]
	}
	return out
}

// FromPoolStats converts worker pool load.
func FromPoolStats(stats workflow.PoolStats) PoolStatus {
	return PoolStatus{Workers: stats.Workers, Running: stats.Running, Queued: stats.Queued}
}

// FromDependencies converts binary availability reports.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, dep := range statuses {
		out = append(out, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return out
}

// FromOutcome shapes an orchestrator outcome into a play response. The
// identity supplies metadata the record may not carry yet.
func FromOutcome(outcome orchestrator.Outcome, identity jobs.Identity) PlayResponse {
	meta := identity.Metadata
	if outcome.Record != nil {
		meta = mergeMetadata(outcome.Record.Metadata(), identity.Metadata)
	}
	resp := PlayResponse{
		VideoID: identity.ContentID,
		Title:   meta.Title,
	}
	switch outcome.Kind {
	case orchestrator.KindCompleted:
		resp.Status = StatusSuccess
		resp.Source = SourceCache
		resp.URL = outcome.Record.ArtifactURL
		resp.Thumbnail = meta.ThumbnailURL
		resp.Duration = meta.Duration
		resp.Channel = meta.Channel
		if identity.Views >= 0 {
			views := identity.Views
			resp.Views = &views
		}
	case orchestrator.KindStarted:
		resp.Status = StatusProcessing
		resp.Message = MessageStarted
		resp.ETA = ProcessingETA
	case orchestrator.KindRetrying:
		resp.Status = StatusProcessing
		resp.Message = MessageRetrying
		resp.ErrorWas = outcome.PreviousError
	default:
		resp.Status = StatusProcessing
		resp.Message = MessageInFlight
		resp.ETA = ProcessingETA
	}
	return resp
}

// mergeMetadata prefers stored values and falls back to fresh ones.
func mergeMetadata(stored, fresh jobs.Metadata) jobs.Metadata {
	if stored.Title == "" {
		stored.Title = fresh.Title
	}
	if stored.ThumbnailURL == "" {
		stored.ThumbnailURL = fresh.ThumbnailURL
	}
	if stored.Channel == "" {
		stored.Channel = fresh.Channel
	}
	if stored.Duration == "" {
		stored.Duration = fresh.Duration
	}
	return stored
}

// ErrorPlay builds an error play response.
func ErrorPlay(message string) PlayResponse {
	return PlayResponse{Status: StatusError, Message: message}
}
