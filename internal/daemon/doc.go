// Package daemon coordinates the long-running tunecache process.
//
// It wires configuration, the job record store, the production worker pool,
// and the HTTP API into a single lifecycle with flock-based locking so only
// one daemon owns a state directory. The daemon also runs the stale record
// reporter and assembles the health summary served at /api/health.
//
// Keep orchestration logic out of here: the cache-or-produce decision lives
// in internal/orchestrator and response shaping in internal/api, while the
// daemon focuses on startup, shutdown, and HTTP hosting.
package daemon
