package ytdlp

import "fmt"

// ResolutionError reports that a query could not be turned into a content identity.
type ResolutionError struct {
	Query string
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %q: %v", e.Query, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// ProductionError reports that the artifact for a content id could not be produced.
type ProductionError struct {
	ContentID string
	Err       error
}

func (e *ProductionError) Error() string {
	return fmt.Sprintf("produce %s: %v", e.ContentID, e.Err)
}

func (e *ProductionError) Unwrap() error { return e.Err }
