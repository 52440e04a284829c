package orchestrator

import "tunecache/internal/jobs"

// Kind classifies the result of ResolveOrEnqueue.
type Kind string

const (
	// KindCompleted means the artifact is available in Record.ArtifactURL.
	KindCompleted Kind = "completed"
	// KindStarted means this call created the record and started production.
	KindStarted Kind = "started"
	// KindProcessing means production is already under way elsewhere.
	KindProcessing Kind = "processing"
	// KindRetrying means this call restarted production of a failed or
	// stale record. PreviousError carries why the prior attempt ended.
	KindRetrying Kind = "retrying"
)

// StaleReclaimedDetail is reported as PreviousError when a stale processing
// record is taken over.
const StaleReclaimedDetail = "stale processing reclaimed"

// Outcome is the decision taken for one request.
type Outcome struct {
	Kind          Kind
	Record        *jobs.Record
	PreviousError string
}
