package orchestrator

import (
	"context"

	"tunecache/internal/jobs"
	"tunecache/internal/workflow"
)

// Resolver maps a user query or link to a content identity.
type Resolver interface {
	Resolve(ctx context.Context, query string) (jobs.Identity, error)
}

// Producer creates the local artifact for one production attempt. Files are
// keyed by attempt so concurrent attempts on one content id never share them.
type Producer interface {
	Produce(ctx context.Context, contentID, attempt string) (string, error)
	// Discard removes anything Produce left on disk for this attempt only.
	Discard(contentID, attempt string) error
}

// Publisher uploads a local artifact and returns its durable URL.
type Publisher interface {
	Publish(ctx context.Context, path string) (string, error)
}

// Submitter accepts background tasks.
type Submitter interface {
	Submit(task workflow.Task) error
}
