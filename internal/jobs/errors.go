package jobs

import "errors"

var (
	// ErrExists is returned by Create when a record for the content id is
	// already present. Callers re-read and follow the existing record.
	ErrExists = errors.New("job record already exists")
	// ErrConflict is returned when a conditional transition matched no
	// record: the state changed or the caller no longer owns the attempt.
	ErrConflict = errors.New("job record changed concurrently")
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)

// DefaultFailureDetail is persisted when a failure carries no message.
const DefaultFailureDetail = "unknown failure"
