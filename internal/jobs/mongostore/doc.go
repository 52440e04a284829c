// Package mongostore implements the jobs.Repository contract on MongoDB.
//
// Records live in one collection keyed by content id (_id), so the server's
// primary-key uniqueness arbitrates concurrent creates across processes. All
// transitions are single-document conditional updates.
package mongostore
