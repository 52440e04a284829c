// Package ytdlp wraps the yt-dlp command line tool.
//
// Client.Resolve turns a link or free-text query into a content identity and
// its metadata. Client.Produce downloads the audio for one production attempt
// into <staging_dir>/<id>/<attempt>/ and converts it to the configured format.
// Discard removes that attempt directory and nothing else.
//
// Command execution goes through the Executor interface so tests can
// substitute canned output or stub scripts.
package ytdlp
