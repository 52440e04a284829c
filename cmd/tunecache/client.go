package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"tunecache/internal/api"
)

// apiClient talks to a running daemon over its HTTP API.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// apiError is a non-2xx response from the daemon.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.Status, e.Message)
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) info(ctx context.Context) (api.ServiceInfo, error) {
	var out api.ServiceInfo
	err := c.get(ctx, "/", nil, &out)
	return out, err
}

// play returns the response even for error statuses; the daemon encodes
// resolution failures as play payloads.
func (c *apiClient) play(ctx context.Context, query string) (api.PlayResponse, error) {
	var out api.PlayResponse
	err := c.get(ctx, "/play", url.Values{"query": {query}}, &out)
	var apiErr *apiError
	if errors.As(err, &apiErr) && out.Status == api.StatusError {
		return out, nil
	}
	return out, err
}

func (c *apiClient) records(ctx context.Context, states []string) ([]api.Record, error) {
	var out api.RecordListResponse
	query := url.Values{}
	for _, state := range states {
		query.Add("state", state)
	}
	if err := c.get(ctx, "/api/records", query, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

func (c *apiClient) record(ctx context.Context, contentID string) (api.Record, error) {
	var out api.RecordResponse
	err := c.get(ctx, "/api/records/"+url.PathEscape(contentID), nil, &out)
	return out.Record, err
}

func (c *apiClient) health(ctx context.Context) (api.HealthResponse, error) {
	var out api.HealthResponse
	err := c.get(ctx, "/api/health", nil, &out)
	return out, err
}

func (c *apiClient) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return wrapDialError(err, c.baseURL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		message := string(body)
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			message = errResp.Error
		}
		if out != nil {
			_ = json.Unmarshal(body, out)
		}
		return &apiError{Status: resp.StatusCode, Message: message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func wrapDialError(err error, baseURL string) error {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: %s refused the connection; start the daemon with `tunecache serve`", baseURL)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("connect to daemon: %w", err)
	}
}

func isDaemonUnreachable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *apiError
	return !errors.As(err, &apiErr)
}
