// Package services defines shared utilities consumed by the orchestrator and
// its external integrations (yt-dlp, the artifact host, the record store).
//
// Key responsibilities:
//   - Context helpers that stamp content IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures carry a
//     consistent classification and a human-readable error_hint.
package services
