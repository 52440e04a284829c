// Package deps reports whether the external binaries tunecache shells out to
// are installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external binary and whether production can run
// without it.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is a Requirement after lookup. Command holds the resolved path when
// Available is true.
type Status struct {
	Requirement
	Available bool
	Detail    string
}

// Satisfied reports whether the dependency does not block operation.
func (s Status) Satisfied() bool {
	return s.Available || s.Optional
}

// CheckBinaries resolves each requirement against PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		req.Description = strings.TrimSpace(req.Description)
		results[i] = lookup(req)
	}
	return results
}

func lookup(req Requirement) Status {
	st := Status{Requirement: req}
	if req.Command == "" {
		st.Detail = "command not configured"
		return st
	}
	path, err := exec.LookPath(req.Command)
	if err != nil {
		st.Detail = fmt.Sprintf("binary %q not found", req.Command)
		return st
	}
	st.Command = path
	st.Available = true
	return st
}

// MissingRequired filters statuses down to those that block production.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, st := range statuses {
		if !st.Satisfied() {
			missing = append(missing, st)
		}
	}
	return missing
}
