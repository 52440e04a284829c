// Package logging assembles structured slog loggers and formatting helpers used
// across tunecache services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so request and production code can
// automatically tag log lines with content IDs, stages, and correlation IDs. The
// package also provides a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the system.
package logging
