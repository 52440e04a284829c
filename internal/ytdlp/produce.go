package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"tunecache/internal/services"
)

const lockRetryDelay = 250 * time.Millisecond

// workDir is <staging_dir>/<content id>/<attempt>. Every file a production
// attempt writes lives there, so a superseded attempt cleaning up never
// touches the files of the attempt that replaced it.
func (c *Client) workDir(contentID, attempt string) string {
	return filepath.Join(c.stagingDir, contentID, attempt)
}

// ArtifactPath returns where the artifact of one production attempt is written.
func (c *Client) ArtifactPath(contentID, attempt string) string {
	return filepath.Join(c.workDir(contentID, attempt), contentID+"."+c.audioFormat)
}

func validWorkKey(contentID, attempt string) bool {
	if !videoIDPattern.MatchString(contentID) {
		return false
	}
	_, err := uuid.Parse(attempt)
	return err == nil
}

// Produce downloads the best audio stream for contentID and converts it to
// the configured format inside the attempt's work directory, returning the
// local artifact path.
func (c *Client) Produce(ctx context.Context, contentID, attempt string) (string, error) {
	if !validWorkKey(contentID, attempt) {
		return "", &ProductionError{
			ContentID: contentID,
			Err:       services.Wrap(services.ErrValidation, "produce", "content id", "malformed content id or attempt", nil),
		}
	}
	dir := c.workDir(contentID, attempt)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &ProductionError{
			ContentID: contentID,
			Err:       services.Wrap(services.ErrConfiguration, "produce", "staging", "create staging directory", err),
		}
	}

	runCtx := ctx
	if c.downloadTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.downloadTimeout)
		defer cancel()
	}

	// Guards the work directory against another daemon sharing staging_dir.
	lock := flock.New(filepath.Join(dir, ".lock"))
	locked, err := lock.TryLockContext(runCtx, lockRetryDelay)
	if err != nil || !locked {
		return "", &ProductionError{
			ContentID: contentID,
			Err:       services.Wrap(services.ErrTransient, "produce", "lock", "artifact is locked by another producer", err),
		}
	}
	defer func() { _ = lock.Unlock() }()

	target := c.ArtifactPath(contentID, attempt)
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", &ProductionError{
			ContentID: contentID,
			Err:       services.Wrap(services.ErrExternalTool, "produce", "staging", "remove previous artifact", err),
		}
	}

	args := []string{
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", c.audioFormat,
		"--audio-quality", c.audioQuality,
		"--no-playlist",
		"--no-check-formats",
		"--geo-bypass",
		"--no-check-certificates",
		"--no-progress",
		"-o", filepath.Join(dir, contentID+".%(ext)s"),
	}
	args = append(args, c.cookieArgs()...)
	args = append(args, c.acceleratorArgs()...)
	args = append(args, WatchURL(contentID))

	if _, stderr, err := c.exec.Output(runCtx, c.binary, args); err != nil {
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			err = services.Wrap(services.ErrTimeout, "produce", "yt-dlp", "download timed out", err)
		case ctx.Err() != nil:
			err = ctx.Err()
		case isUnavailable(stderr):
			err = services.Wrap(services.ErrNotFound, "produce", "yt-dlp", lastErrorLine(stderr), err)
		default:
			err = services.Wrap(services.ErrExternalTool, "produce", "yt-dlp", lastErrorLine(stderr), err)
		}
		return "", &ProductionError{ContentID: contentID, Err: err}
	}

	info, err := os.Stat(target)
	if err != nil || info.Size() == 0 {
		return "", &ProductionError{
			ContentID: contentID,
			Err:       services.Wrap(services.ErrExternalTool, "produce", "verify", fmt.Sprintf("no %s output at %s", c.audioFormat, target), err),
		}
	}
	return target, nil
}

// Discard removes the work directory of one production attempt: the
// artifact, intermediate download files and the lock. The per-content parent
// is removed only once no attempt directory remains in it.
func (c *Client) Discard(contentID, attempt string) error {
	if !validWorkKey(contentID, attempt) {
		return nil
	}
	if err := os.RemoveAll(c.workDir(contentID, attempt)); err != nil {
		return fmt.Errorf("discard %s attempt %s: %w", contentID, attempt, err)
	}
	// Fails with ENOTEMPTY while a newer attempt is still working.
	_ = os.Remove(filepath.Join(c.stagingDir, contentID))
	return nil
}
