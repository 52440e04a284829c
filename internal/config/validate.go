package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateYTDLP(); err != nil {
		return err
	}
	if err := c.validatePublisher(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case BackendSQLite:
		return nil
	case BackendMongo:
		if c.Store.MongoURL == "" {
			return errors.New("store.mongo_url must be set when store.backend is mongo (or export MONGO_URL)")
		}
		return nil
	default:
		return fmt.Errorf("store.backend: unsupported value %q (expected sqlite or mongo)", c.Store.Backend)
	}
}

func (c *Config) validateYTDLP() error {
	if err := ensurePositiveMap(map[string]int{
		"ytdlp.resolve_timeout":  c.YTDLP.ResolveTimeout,
		"ytdlp.download_timeout": c.YTDLP.DownloadTimeout,
	}); err != nil {
		return err
	}
	switch c.YTDLP.AudioFormat {
	case "mp3", "m4a", "opus", "aac", "flac", "wav", "vorbis":
	default:
		return fmt.Errorf("ytdlp.audio_format: unsupported value %q", c.YTDLP.AudioFormat)
	}
	return nil
}

func (c *Config) validatePublisher() error {
	parsed, err := url.Parse(c.Publisher.Endpoint)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("publisher.endpoint must be an http(s) URL, got %q", c.Publisher.Endpoint)
	}
	if c.Publisher.Timeout <= 0 {
		return errors.New("publisher.timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.workers":         c.Workflow.Workers,
		"workflow.queue_size":      c.Workflow.QueueSize,
		"workflow.reaper_interval": c.Workflow.ReaperInterval,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.StaleAfter <= 0 {
		return errors.New("workflow.stale_after must be positive")
	}
	if c.Workflow.StaleAfter <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.stale_after must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.NtfyTopic)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) topic URL, got %q", c.Notifications.NtfyTopic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
