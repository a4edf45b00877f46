package config

import "time"

// Settings is the resolved process configuration. Every field has a default
// so a bare environment still produces a runnable server.
type Settings struct {
	Port      string
	LogLevel  string
	LogFormat string

	CatalogPath        string
	CatalogURL         string
	ThumbnailDir       string
	StaticDir          string
	PlaceholderURL     string
	ProxyMode          string
	LocationFixupsFile string

	RotationWindow   time.Duration
	FeedRefresh      time.Duration
	SourceRetryDelay time.Duration
	SessionIdleTTL   time.Duration

	PrefsBackend    string
	PrefsSQLitePath string
	RedisAddr       string

	IPInfoRPS float64
}

// FromEnv builds Settings from the environment. Call Load first to pick up .env.
func FromEnv() Settings {
	return Settings{
		Port:      GetEnv("PORT", "8080"),
		LogLevel:  GetEnv("LOG_LEVEL", "info"),
		LogFormat: GetEnv("LOG_FORMAT", "json"),

		CatalogPath:        GetEnv("CATALOG_PATH", "cams.json"),
		CatalogURL:         GetEnv("CATALOG_URL", ""),
		ThumbnailDir:       GetEnv("THUMBNAIL_DIR", "thumbnails"),
		StaticDir:          GetEnv("STATIC_DIR", "static"),
		PlaceholderURL:     GetEnv("PLACEHOLDER_URL", "/static/no-signal.svg"),
		ProxyMode:          GetEnv("PROXY_MODE", "always"),
		LocationFixupsFile: GetEnv("LOCATION_FIXUPS_FILE", ""),

		RotationWindow:   GetEnvDuration("ROTATION_WINDOW", 5*time.Minute),
		FeedRefresh:      GetEnvDuration("FEED_REFRESH", 3*time.Second),
		SourceRetryDelay: GetEnvDuration("SOURCE_RETRY_DELAY", 2*time.Second),
		SessionIdleTTL:   GetEnvDuration("SESSION_IDLE_TTL", 30*time.Minute),

		PrefsBackend:    GetEnv("PREFS_BACKEND", "memory"),
		PrefsSQLitePath: GetEnv("PREFS_SQLITE_PATH", "feedwall.db"),
		RedisAddr:       GetEnv("REDIS_ADDR", "localhost:6379"),

		IPInfoRPS: GetEnvFloat("IPINFO_RPS", 1),
	}
}
