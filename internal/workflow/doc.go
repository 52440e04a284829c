// Package workflow runs production tasks in the background.
//
// Pool is a bounded set of workers fed by a buffered submission queue;
// Submit never blocks and reports ErrQueueFull when the backlog is saturated.
// HeartbeatMonitor keeps the owning task's record fresh while it runs and
// signals when ownership has been lost to a takeover. StaleReporter
// periodically logs how many processing records have gone quiet; it never
// retries them, since retry is driven by the next request for that content.
package workflow
