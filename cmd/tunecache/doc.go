// Command tunecache is the operator CLI for the tunecache daemon.
//
// "tunecache serve" runs the daemon in the foreground. The other commands
// talk to a running daemon over its HTTP API (play, records list/show,
// status) or work on local files directly (config, records purge-failed).
package main
