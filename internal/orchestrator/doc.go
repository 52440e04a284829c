// Package orchestrator decides, for each resolved content identity, whether
// to serve a cached artifact, report work in flight, or start production.
//
// Every decision that could race with another caller is settled by a
// conditional write in the record store: a create that only succeeds when no
// record exists, a retry that only succeeds on a failed record, and a
// takeover that only succeeds on a stale record still owned by the attempt
// the caller observed. The winner submits exactly one production task to the
// worker pool; losers re-read the record and follow whatever the winner
// left behind.
//
// Production tasks heartbeat while they run, always remove the local
// artifact, and record their outcome only if they still own the record.
package orchestrator
