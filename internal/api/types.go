package api

import "tunecache/internal/workflow"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Version is reported by the liveness descriptor. Release builds override it
// with -ldflags "-X tunecache/internal/api.Version=...".
var Version = "dev"

// Play response statuses.
const (
	StatusSuccess    = "success"
	StatusProcessing = "processing"
	StatusError      = "error"
)

// Play response messages and the polling hint.
const (
	MessageStarted    = "processing started"
	MessageInFlight   = "still processing"
	MessageRetrying   = "retrying"
	ProcessingETA     = "30 seconds"
	SourceCache       = "cache"
	MessageNoQuery    = "query parameter is required"
	MessageNotFound   = "no matching content found"
	MessageUnexpected = "internal error"
)

// ServiceInfo is the liveness descriptor served at the root path.
type ServiceInfo struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Store   string `json:"store"`
}

// PlayResponse is the /play payload. Only the fields relevant to Status are set.
type PlayResponse struct {
	Status    string `json:"status"`
	Source    string `json:"source,omitempty"`
	Message   string `json:"message,omitempty"`
	ETA       string `json:"eta,omitempty"`
	Title     string `json:"title,omitempty"`
	URL       string `json:"url,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Duration  string `json:"duration,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Views     *int64 `json:"views,omitempty"`
	VideoID   string `json:"video_id,omitempty"`
	ErrorWas  string `json:"error_was,omitempty"`
}

// Record describes a job record in a transport-friendly format.
type Record struct {
	ContentID     string `json:"contentId"`
	Title         string `json:"title"`
	ThumbnailURL  string `json:"thumbnailUrl,omitempty"`
	Channel       string `json:"channel,omitempty"`
	Duration      string `json:"duration,omitempty"`
	State         string `json:"state"`
	ArtifactURL   string `json:"artifactUrl,omitempty"`
	ErrorDetail   string `json:"errorDetail,omitempty"`
	Attempt       string `json:"attempt,omitempty"`
	Attempts      int    `json:"attempts"`
	LastHeartbeat string `json:"lastHeartbeat,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

// RecordListResponse wraps a collection of records.
type RecordListResponse struct {
	Records []Record `json:"records"`
}

// RecordResponse wraps a single record.
type RecordResponse struct {
	Record Record `json:"record"`
}

// PurgeResponse reports how many failed records an operator purge removed.
type PurgeResponse struct {
	Removed int64 `json:"removed"`
}

// PoolStatus mirrors workflow.PoolStats.
type PoolStatus struct {
	Workers int `json:"workers"`
	Running int `json:"running"`
	Queued  int `json:"queued"`
}

// DependencyStatus captures availability of an external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// HealthResponse aggregates daemon runtime information.
type HealthResponse struct {
	Running      bool                       `json:"running"`
	PID          int                        `json:"pid"`
	Version      string                     `json:"version"`
	Store        string                     `json:"store"`
	StorePath    string                     `json:"storePath,omitempty"`
	LockFilePath string                     `json:"lockFilePath"`
	Stats        map[string]int             `json:"stats"`
	Stale        int                        `json:"stale"`
	Pool         PoolStatus                 `json:"pool"`
	Dependencies []DependencyStatus         `json:"dependencies"`
	Components   []workflow.ComponentHealth `json:"components"`
}

// ErrorResponse is returned by /api endpoints on failure.
type ErrorResponse struct {
	Error string `json:"error"`
}
