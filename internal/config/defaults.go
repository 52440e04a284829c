package config

// Supported job record backends.
const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

const (
	defaultStagingDir            = "~/.local/share/tunecache/staging"
	defaultStateDir              = "~/.local/share/tunecache"
	defaultLogDir                = "~/.local/share/tunecache/logs"
	defaultAPIBind               = "0.0.0.0:8000"
	defaultMongoDatabase         = "MusicAPI_DB"
	defaultMongoCollection       = "songs_cache"
	defaultMongoTimeout          = 10
	defaultYTDLPBinary           = "yt-dlp"
	defaultAcceleratorBinary     = "aria2c"
	defaultAudioFormat           = "mp3"
	defaultAudioQuality          = "128K"
	defaultResolveTimeout        = 60
	defaultDownloadTimeout       = 900
	defaultPublisherEndpoint     = "https://catbox.moe/user/api.php"
	defaultPublisherTimeout      = 300
	defaultWorkflowWorkers       = 4
	defaultWorkflowQueueSize     = 64
	defaultHeartbeatInterval     = 15
	defaultStaleAfter            = 900
	defaultReaperInterval        = 300
	defaultNtfyRequestTimeout    = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
	defaultWorkingDirCookiesFile = "cookies.txt"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Store: Store{
			MongoDatabase:   defaultMongoDatabase,
			MongoCollection: defaultMongoCollection,
			MongoTimeout:    defaultMongoTimeout,
		},
		YTDLP: YTDLP{
			Binary:            defaultYTDLPBinary,
			AcceleratorBinary: defaultAcceleratorBinary,
			AudioFormat:       defaultAudioFormat,
			AudioQuality:      defaultAudioQuality,
			ResolveTimeout:    defaultResolveTimeout,
			DownloadTimeout:   defaultDownloadTimeout,
		},
		Publisher: Publisher{
			Endpoint: defaultPublisherEndpoint,
			Timeout:  defaultPublisherTimeout,
		},
		Workflow: Workflow{
			Workers:           defaultWorkflowWorkers,
			QueueSize:         defaultWorkflowQueueSize,
			HeartbeatInterval: defaultHeartbeatInterval,
			StaleAfter:        defaultStaleAfter,
			ReaperInterval:    defaultReaperInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
