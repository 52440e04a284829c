package preflight

import (
	"context"

	"tunecache/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the local preflight checks for the given config. Network
// checks are left to callers that can afford the latency.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.YTDLP.CookiesFile != "" {
		results = append(results, CheckCookiesFile(cfg.YTDLP.CookiesFile))
	}
	if cfg.UsesMongo() {
		results = append(results, CheckMongoURL(cfg.Store.MongoURL))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
