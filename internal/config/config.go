package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Store selects and configures the job record backend.
type Store struct {
	Backend         string `toml:"backend"`
	MongoURL        string `toml:"mongo_url"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
	MongoTimeout    int    `toml:"mongo_timeout"`
}

// YTDLP contains configuration for the resolver and producer toolchain.
type YTDLP struct {
	Binary            string `toml:"binary"`
	CookiesFile       string `toml:"cookies_file"`
	Accelerator       bool   `toml:"accelerator"`
	AcceleratorBinary string `toml:"accelerator_binary"`
	AudioFormat       string `toml:"audio_format"`
	AudioQuality      string `toml:"audio_quality"`
	ResolveTimeout    int    `toml:"resolve_timeout"`
	DownloadTimeout   int    `toml:"download_timeout"`
}

// Publisher contains configuration for the anonymous artifact host.
type Publisher struct {
	Endpoint string `toml:"endpoint"`
	UserHash string `toml:"userhash"`
	Timeout  int    `toml:"timeout"`
}

// Workflow contains configuration for the production worker pool and
// liveness tracking.
type Workflow struct {
	Workers           int `toml:"workers"`
	QueueSize         int `toml:"queue_size"`
	HeartbeatInterval int `toml:"heartbeat_interval"`
	// StaleAfter is the age in seconds after which a processing record
	// without a fresh heartbeat may be taken over by a new request.
	StaleAfter     int `toml:"stale_after"`
	ReaperInterval int `toml:"reaper_interval"`
}

// Notifications contains configuration for ntfy operator notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for tunecache.
//
// Configuration sections by subsystem:
//   - Paths: directories and API bind address
//   - Store: job record backend (sqlite or mongo)
//   - YTDLP: identity resolution and artifact production
//   - Publisher: artifact upload host
//   - Workflow: worker pool sizing, heartbeats, staleness
//   - Notifications: ntfy topic for production events
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Store         Store         `toml:"store"`
	YTDLP         YTDLP         `toml:"ytdlp"`
	Publisher     Publisher     `toml:"publisher"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tunecache/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tunecache.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// UsesMongo reports whether job records live in MongoDB rather than SQLite.
func (c *Config) UsesMongo() bool {
	return c.Store.Backend == BackendMongo
}

// SQLitePath returns the location of the SQLite job record database.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.Paths.StateDir, "records.db")
}

// LockPath returns the daemon lock file guarding the state directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "tunecached.lock")
}

// StaleAfter returns the processing staleness threshold.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Workflow.StaleAfter) * time.Second
}

// HeartbeatInterval returns the interval between heartbeats of a running production task.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Workflow.HeartbeatInterval) * time.Second
}

// ReaperInterval returns how often the daemon reports stale processing records.
func (c *Config) ReaperInterval() time.Duration {
	return time.Duration(c.Workflow.ReaperInterval) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
