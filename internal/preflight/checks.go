package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"tunecache/internal/config"
	"tunecache/internal/deps"
)

// CheckPublisher verifies that the artifact host answers HTTP requests.
// Any response below 500 counts as reachable; the upload endpoint rejects
// bare GETs with a client error.
func CheckPublisher(ctx context.Context, endpoint string) Result {
	const name = "Publisher"

	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return Result{Name: name, Detail: "missing endpoint"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("reachability check failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetworkError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("host unhealthy (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCookiesFile verifies that the yt-dlp cookies file is readable.
func CheckCookiesFile(path string) Result {
	const name = "Cookies file"

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckMongoURL validates the MongoDB connection string without dialing.
func CheckMongoURL(raw string) Result {
	const name = "MongoDB"

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Result{Name: name, Detail: "missing mongo_url (or MONGO_URL)"}
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return Result{Name: name, Detail: "mongo_url is not a valid URL"}
	}
	if parsed.Scheme != "mongodb" && parsed.Scheme != "mongodb+srv" {
		return Result{Name: name, Detail: fmt.Sprintf("unsupported scheme %q", parsed.Scheme)}
	}
	if parsed.Host == "" {
		return Result{Name: name, Detail: "mongo_url has no host"}
	}
	return Result{Name: name, Passed: true, Detail: parsed.Host}
}

// CheckSystemDeps evaluates the binaries tunecache shells out to. Both the
// daemon and the CLI status command use this to share the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.YTDLP.Binary,
			Description: "Required for resolving queries and downloading audio",
		},
		{
			Name:        "FFmpeg",
			Command:     "ffmpeg",
			Description: "Required by yt-dlp for audio extraction",
		},
		{
			Name:        "FFprobe",
			Command:     "ffprobe",
			Description: "Required by yt-dlp for audio post-processing",
		},
	}
	if cfg.YTDLP.Accelerator {
		requirements = append(requirements, deps.Requirement{
			Name:        "aria2c",
			Command:     cfg.YTDLP.AcceleratorBinary,
			Description: "Accelerates downloads; yt-dlp's native downloader is used when absent",
			Optional:    true,
		})
	}
	return deps.CheckBinaries(requirements)
}

func summarizeNetworkError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "reachability check timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "reachability check timed out"
	}
	return fmt.Sprintf("reachability check failed (%v)", err)
}
