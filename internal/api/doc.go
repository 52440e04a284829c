// Package api defines the wire-format types and services behind tunecache's
// HTTP surface. It translates job records and orchestrator outcomes into
// transport-friendly DTOs so handlers and the CLI never depend on store
// internals.
//
// # Key Types
//
// PlayResponse: the /play payload. Its keys (video_id, error_was, ...) are
// kept compatible with existing players of the music API.
//
// Record: transport representation of a job record for /api/records.
//
// HealthResponse: store counts, worker pool load, dependency and component
// readiness for /api/health and "tunecache status".
//
// # Services
//
// PlayService: resolve a query, run the cache-or-produce decision, and map
// the outcome to a PlayResponse plus HTTP status.
//
// RecordService: read-only record listing and lookup returning DTOs.
//
// # Design Notes
//
// Record DTOs use camelCase JSON tags like the rest of the /api namespace.
// Timestamps use RFC3339 with milliseconds.
package api
