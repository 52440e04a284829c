// Package jobs persists one job record per content identifier and exposes the
// conditional transitions that drive its lifecycle.
//
// A record is created in the processing state on the first cache miss, moved
// to completed or failed by the production task that owns it, moved from
// failed back to processing by a retry, and handed to a new owner when its
// heartbeat goes stale. Ownership is carried by an attempt token: every
// completing or failing write names the token it expects, so a task that lost
// its record to a takeover cannot overwrite the newer outcome.
//
// Store is the SQLite implementation. The mongostore subpackage implements the
// same Repository contract on MongoDB. Schema changes bump schemaVersion in
// schema.go; operators delete the database to adopt the new schema.
package jobs
