package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tunecache/internal/config"
)

const userAgent = "tunecache/0.1"

// Event identifies a notification type.
type Event string

const (
	EventProductionCompleted Event = "production_completed"
	EventProductionFailed    Event = "production_failed"
	EventTest                Event = "test"
)

// Payload carries event fields. Keys used: contentID, title, url, stage, error.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service when notifications.ntfy_topic is
// set and a no-op otherwise.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	label := payload.label()
	switch event {
	case EventProductionCompleted:
		body := "🎵 Ready: " + label
		if url := payload.str("url"); url != "" {
			body += "\n" + url
		}
		return message{
			title: "tunecache - Ready",
			body:  body,
			tags:  []string{"tunecache", "production", "completed"},
		}, true
	case EventProductionFailed:
		body := "❌ Failed: " + label
		if stage := payload.str("stage"); stage != "" {
			body += " (" + stage + ")"
		}
		if detail := payload.str("error"); detail != "" {
			body += "\n" + detail
		}
		return message{
			title:    "tunecache - Production Failed",
			body:     body,
			tags:     []string{"tunecache", "production", "failed"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "tunecache - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"tunecache", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// label prefers the title and falls back to the content id.
func (p Payload) label() string {
	title := p.str("title")
	id := p.str("contentID")
	switch {
	case title != "" && id != "":
		return fmt.Sprintf("%s [%s]", title, id)
	case title != "":
		return title
	case id != "":
		return id
	default:
		return "unknown"
	}
}

func (p Payload) str(key string) string {
	if p == nil {
		return ""
	}
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
