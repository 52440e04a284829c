package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget names a log directory, the glob its rotated files follow,
// and any paths that must survive pruning (typically the active log).
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs deletes rotated daemon logs whose modification time is more
// than retentionDays in the past. retentionDays <= 0 keeps everything.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) {
	if retentionDays <= 0 {
		return
	}
	if logger == nil {
		logger = NewNop()
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	keep := protectedPaths(targets)

	for _, target := range targets {
		for _, path := range expiredLogs(target, cutoff) {
			if _, ok := keep[path]; ok {
				continue
			}
			if err := os.Remove(path); err != nil {
				WarnWithContext(logger, "could not prune old log", "log_retention_failed",
					String("path", path),
					Error(err),
					String(FieldErrorHint, "verify ownership of paths.log_dir"),
					String(FieldImpact, "stale log stays on disk until the next daemon start"),
				)
				continue
			}
			logger.Info("pruned old log", String("path", path), String(FieldEventType, "log_pruned"))
		}
	}
}

func protectedPaths(targets []RetentionTarget) map[string]struct{} {
	keep := make(map[string]struct{})
	for _, target := range targets {
		for _, p := range target.Exclude {
			if p = strings.TrimSpace(p); p != "" {
				keep[absPath(p)] = struct{}{}
			}
		}
	}
	return keep
}

// expiredLogs lists absolute paths of regular files in target.Dir that match
// target.Pattern and were last modified before cutoff.
func expiredLogs(target RetentionTarget, cutoff time.Time) []string {
	dir := strings.TrimSpace(target.Dir)
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	pattern := strings.TrimSpace(target.Pattern)
	var expired []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if pattern != "" {
			if ok, err := filepath.Match(pattern, entry.Name()); err != nil || !ok {
				continue
			}
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		expired = append(expired, absPath(filepath.Join(dir, entry.Name())))
	}
	return expired
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
