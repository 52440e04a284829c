package jobs

import (
	"context"
	"time"
)

// Repository is the persistence contract shared by the SQLite and MongoDB
// backends. Every transition is a conditional write decided by the backend,
// so concurrent callers in any number of processes agree on a single winner.
type Repository interface {
	// Backend names the implementation ("sqlite" or "mongo").
	Backend() string
	// Get returns the record for contentID, or nil when none exists.
	Get(ctx context.Context, contentID string) (*Record, error)
	// Create inserts a processing record owned by attempt. It returns
	// ErrExists when a record for contentID is already present.
	Create(ctx context.Context, contentID string, meta Metadata, attempt string) error
	// Retry moves a failed record back to processing under a new attempt,
	// clearing its error detail. It returns ErrConflict when the record is
	// not failed.
	Retry(ctx context.Context, contentID, attempt string) error
	// TakeOver hands a stale processing record owned by previousAttempt to
	// attempt. Activity at or after cutoff means the record is not stale.
	TakeOver(ctx context.Context, contentID, previousAttempt, attempt string, cutoff time.Time) error
	// Complete records the artifact URL if attempt still owns the record.
	Complete(ctx context.Context, contentID, attempt, artifactURL string) error
	// Fail records the failure detail if attempt still owns the record.
	Fail(ctx context.Context, contentID, attempt, detail string) error
	// Heartbeat refreshes the liveness timestamp of an owned processing record.
	Heartbeat(ctx context.Context, contentID, attempt string) error
	// EnrichMetadata fills empty descriptive fields from meta.
	EnrichMetadata(ctx context.Context, contentID string, meta Metadata) error
	// List returns records in the given states, most recently updated first.
	// No states means all records.
	List(ctx context.Context, states ...State) ([]*Record, error)
	// Stats counts records per state.
	Stats(ctx context.Context) (Stats, error)
	// CountStale counts processing records with no activity since cutoff.
	CountStale(ctx context.Context, cutoff time.Time) (int, error)
	// PurgeFailed deletes failed records. It is an operator action and is
	// never reached from the request path.
	PurgeFailed(ctx context.Context) (int64, error)
	Close() error
}
