package jobs

import (
	"strings"
	"time"
)

// State represents the lifecycle state of a job record.
type State string

const (
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

var allStates = []State{StateProcessing, StateCompleted, StateFailed}

// AllStates returns every record state in lifecycle order.
func AllStates() []State {
	out := make([]State, len(allStates))
	copy(out, allStates)
	return out
}

// ParseState normalizes a textual state.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	for _, s := range allStates {
		if s == normalized {
			return s, true
		}
	}
	return "", false
}

// Metadata is the descriptive information carried alongside a content id.
// All fields are best effort.
type Metadata struct {
	Title        string
	ThumbnailURL string
	Channel      string
	Duration     string
}

// IsZero reports whether no metadata field is set.
func (m Metadata) IsZero() bool {
	return m.Title == "" && m.ThumbnailURL == "" && m.Channel == "" && m.Duration == ""
}

// Record is the persisted job state for one content identifier.
type Record struct {
	ContentID     string
	Title         string
	ThumbnailURL  string
	Channel       string
	Duration      string
	State         State
	ArtifactURL   string
	ErrorDetail   string
	Attempt       string
	Attempts      int
	LastHeartbeat *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Metadata returns the descriptive fields of the record.
func (r *Record) Metadata() Metadata {
	if r == nil {
		return Metadata{}
	}
	return Metadata{
		Title:        r.Title,
		ThumbnailURL: r.ThumbnailURL,
		Channel:      r.Channel,
		Duration:     r.Duration,
	}
}

// LastActivity returns the heartbeat timestamp, or UpdatedAt when the owning
// task has not reported yet.
func (r *Record) LastActivity() time.Time {
	if r.LastHeartbeat != nil && !r.LastHeartbeat.IsZero() {
		return *r.LastHeartbeat
	}
	return r.UpdatedAt
}

// IsStale reports whether a processing record has gone without activity for
// longer than staleAfter. Non-processing records are never stale. A
// non-positive staleAfter disables staleness.
func (r *Record) IsStale(now time.Time, staleAfter time.Duration) bool {
	if r == nil || r.State != StateProcessing || staleAfter <= 0 {
		return false
	}
	return now.Sub(r.LastActivity()) > staleAfter
}

// NeedsEnrichment reports whether meta would fill any empty field.
func (r *Record) NeedsEnrichment(meta Metadata) bool {
	if r == nil {
		return false
	}
	return (r.Title == "" && meta.Title != "") ||
		(r.ThumbnailURL == "" && meta.ThumbnailURL != "") ||
		(r.Channel == "" && meta.Channel != "") ||
		(r.Duration == "" && meta.Duration != "")
}

// Stats counts records per state.
type Stats map[State]int

// Total returns the number of records across all states.
func (s Stats) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}

// Identity is a resolved content identity plus the metadata the resolver
// reported for it.
type Identity struct {
	ContentID string
	Metadata  Metadata
	// Views is the upstream view count, or -1 when unknown.
	Views     int64
	SourceURL string
}
