package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStore()
	if err := c.normalizeYTDLP(); err != nil {
		return err
	}
	c.normalizePublisher()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("TUNECACHE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

// normalizeStore honours MONGO_URL the way the hosted deployment is
// configured: a connection string in the environment selects the mongo
// backend unless the file pins one explicitly.
func (c *Config) normalizeStore() {
	c.Store.MongoURL = strings.TrimSpace(c.Store.MongoURL)
	if c.Store.MongoURL == "" {
		if value, ok := os.LookupEnv("MONGO_URL"); ok {
			c.Store.MongoURL = strings.TrimSpace(value)
		}
	}
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		if c.Store.MongoURL != "" {
			c.Store.Backend = BackendMongo
		} else {
			c.Store.Backend = BackendSQLite
		}
	}
	c.Store.MongoDatabase = strings.TrimSpace(c.Store.MongoDatabase)
	if c.Store.MongoDatabase == "" {
		c.Store.MongoDatabase = defaultMongoDatabase
	}
	c.Store.MongoCollection = strings.TrimSpace(c.Store.MongoCollection)
	if c.Store.MongoCollection == "" {
		c.Store.MongoCollection = defaultMongoCollection
	}
	if c.Store.MongoTimeout <= 0 {
		c.Store.MongoTimeout = defaultMongoTimeout
	}
}

func (c *Config) normalizeYTDLP() error {
	c.YTDLP.Binary = strings.TrimSpace(c.YTDLP.Binary)
	if c.YTDLP.Binary == "" {
		c.YTDLP.Binary = defaultYTDLPBinary
	}
	c.YTDLP.AcceleratorBinary = strings.TrimSpace(c.YTDLP.AcceleratorBinary)
	if c.YTDLP.AcceleratorBinary == "" {
		c.YTDLP.AcceleratorBinary = defaultAcceleratorBinary
	}
	c.YTDLP.AudioFormat = strings.ToLower(strings.TrimSpace(c.YTDLP.AudioFormat))
	if c.YTDLP.AudioFormat == "" {
		c.YTDLP.AudioFormat = defaultAudioFormat
	}
	c.YTDLP.AudioQuality = strings.TrimSpace(c.YTDLP.AudioQuality)
	if c.YTDLP.AudioQuality == "" {
		c.YTDLP.AudioQuality = defaultAudioQuality
	}

	cookies := strings.TrimSpace(c.YTDLP.CookiesFile)
	if cookies == "" {
		if value, ok := os.LookupEnv("TUNECACHE_COOKIES"); ok {
			cookies = strings.TrimSpace(value)
		}
	}
	if cookies == "" {
		if info, err := os.Stat(defaultWorkingDirCookiesFile); err == nil && !info.IsDir() {
			cookies = defaultWorkingDirCookiesFile
		}
	}
	var err error
	if c.YTDLP.CookiesFile, err = expandPath(cookies); err != nil {
		return fmt.Errorf("ytdlp.cookies_file: %w", err)
	}
	return nil
}

func (c *Config) normalizePublisher() {
	c.Publisher.Endpoint = strings.TrimSpace(c.Publisher.Endpoint)
	if c.Publisher.Endpoint == "" {
		c.Publisher.Endpoint = defaultPublisherEndpoint
	}
	c.Publisher.UserHash = strings.TrimSpace(c.Publisher.UserHash)
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("TUNECACHE_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
