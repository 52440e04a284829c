// Package notifications delivers production events to an operator via ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers always hold a usable Service. Only the events an operator acts on
// are sent: finished artifacts, failed productions, and the CLI test message.
package notifications
