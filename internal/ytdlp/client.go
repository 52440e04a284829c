package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"tunecache/internal/config"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Output(ctx context.Context, binary string, args []string) (stdout []byte, stderr string, err error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLookPath overrides binary discovery for the download accelerator.
func WithLookPath(lookPath func(string) (string, error)) Option {
	return func(c *Client) {
		if lookPath != nil {
			c.lookPath = lookPath
		}
	}
}

// Client wraps yt-dlp interactions.
type Client struct {
	binary            string
	cookiesFile       string
	accelerator       bool
	acceleratorBinary string
	audioFormat       string
	audioQuality      string
	stagingDir        string
	resolveTimeout    time.Duration
	downloadTimeout   time.Duration

	exec     Executor
	lookPath func(string) (string, error)
}

// New constructs a client from the daemon configuration.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("ytdlp: config is required")
	}
	binary := strings.TrimSpace(cfg.YTDLP.Binary)
	if binary == "" {
		return nil, errors.New("ytdlp: binary required")
	}
	if strings.TrimSpace(cfg.Paths.StagingDir) == "" {
		return nil, errors.New("ytdlp: staging directory required")
	}
	client := &Client{
		binary:            binary,
		cookiesFile:       strings.TrimSpace(cfg.YTDLP.CookiesFile),
		accelerator:       cfg.YTDLP.Accelerator,
		acceleratorBinary: strings.TrimSpace(cfg.YTDLP.AcceleratorBinary),
		audioFormat:       strings.TrimSpace(cfg.YTDLP.AudioFormat),
		audioQuality:      strings.TrimSpace(cfg.YTDLP.AudioQuality),
		stagingDir:        cfg.Paths.StagingDir,
		resolveTimeout:    time.Duration(cfg.YTDLP.ResolveTimeout) * time.Second,
		downloadTimeout:   time.Duration(cfg.YTDLP.DownloadTimeout) * time.Second,
		exec:              commandExecutor{},
		lookPath:          exec.LookPath,
	}
	if client.audioFormat == "" {
		client.audioFormat = "mp3"
	}
	if client.audioQuality == "" {
		client.audioQuality = "128K"
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// cookieArgs passes the cookies file only when it exists.
func (c *Client) cookieArgs() []string {
	if c.cookiesFile == "" {
		return nil
	}
	if info, err := os.Stat(c.cookiesFile); err != nil || info.IsDir() {
		return nil
	}
	return []string{"--cookies", c.cookiesFile}
}

func (c *Client) acceleratorArgs() []string {
	if !c.accelerator || c.acceleratorBinary == "" {
		return nil
	}
	if _, err := c.lookPath(c.acceleratorBinary); err != nil {
		return nil
	}
	return []string{"--downloader", c.acceleratorBinary}
}

type commandExecutor struct{}

func (commandExecutor) Output(ctx context.Context, binary string, args []string) ([]byte, string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), stderr.String(), fmt.Errorf("run %s: %w", binary, err)
	}
	return stdout.Bytes(), stderr.String(), nil
}

// lastErrorLine picks the most informative line of tool stderr.
func lastErrorLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	var fallback string
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "ERROR:") {
			return truncate(line, 300)
		}
		if fallback == "" {
			fallback = line
		}
	}
	return truncate(fallback, 300)
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}

func isUnavailable(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, marker := range []string{"video unavailable", "is not available", "private video", "does not exist", "no video results"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
