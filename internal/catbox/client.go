package catbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tunecache/internal/config"
	"tunecache/internal/services"
)

// maxResponseBytes bounds how much of the host's reply is read.
const maxResponseBytes = 4096

// PublicationError reports that an artifact could not be published.
type PublicationError struct {
	Path string
	Err  error
}

func (e *PublicationError) Error() string {
	return fmt.Sprintf("publish %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *PublicationError) Unwrap() error { return e.Err }

// Option configures the client.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP client (primarily for tests).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// Client uploads files to the configured endpoint.
type Client struct {
	endpoint string
	userHash string
	timeout  time.Duration
	http     *http.Client
}

// New constructs a publisher client from the daemon configuration.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("catbox: config is required")
	}
	endpoint := strings.TrimSpace(cfg.Publisher.Endpoint)
	if endpoint == "" {
		return nil, errors.New("catbox: endpoint required")
	}
	client := &Client{
		endpoint: endpoint,
		userHash: cfg.Publisher.UserHash,
		timeout:  time.Duration(cfg.Publisher.Timeout) * time.Second,
		http:     &http.Client{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Publish uploads the file at path and returns its public URL.
func (c *Client) Publish(ctx context.Context, path string) (string, error) {
	url, err := c.publish(ctx, path)
	if err != nil {
		return "", &PublicationError{Path: path, Err: err}
	}
	return url, nil
}

func (c *Client) publish(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "publish", "open artifact", "", err)
	}
	defer file.Close()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	// Stream the multipart body so large artifacts are not buffered in memory.
	pr, pw := io.Pipe()
	defer pr.Close()
	writer := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(writer, file, c.userHash))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, pr)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "publish", "build request", "", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("User-Agent", "tunecache")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, "publish", "upload", "upload timed out", err)
		}
		return "", services.Wrap(services.ErrTransient, "publish", "upload", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "publish", "read response", "", err)
	}
	text := strings.TrimSpace(string(body))
	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrExternalTool, "publish", "upload",
			fmt.Sprintf("host returned %d: %s", resp.StatusCode, truncate(text, 200)), nil)
	}
	if !strings.HasPrefix(text, "https://") && !strings.HasPrefix(text, "http://") {
		return "", services.Wrap(services.ErrExternalTool, "publish", "upload",
			fmt.Sprintf("unexpected host response: %s", truncate(text, 200)), nil)
	}
	return text, nil
}

func writeForm(writer *multipart.Writer, file *os.File, userHash string) error {
	if err := writer.WriteField("reqtype", "fileupload"); err != nil {
		return err
	}
	if err := writer.WriteField("userhash", userHash); err != nil {
		return err
	}
	part, err := writer.CreateFormFile("fileToUpload", filepath.Base(file.Name()))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	return writer.Close()
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
