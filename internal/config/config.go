// Package config provides configuration management for the docpull service.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the docpull service.
type Config struct {
	// Server settings
	Port     int
	LogLevel string

	// Target platform settings
	PlatformBaseURL  string
	PlatformLogin    string // credential email for the platform account
	PlatformPassword string
	CDNMarker        string // substring identifying the platform's file CDN

	// OTP mailbox settings (IMAP over TLS)
	IMAPHost         string
	IMAPPort         int
	IMAPUser         string
	IMAPPassword     string
	OTPSubjectMarker string
	OTPLookback      int

	// Browser settings
	ChromePath     string
	DisableStealth bool

	// Session settings
	SessionTTL        time.Duration
	CookiePath        string
	SessionDBPath     string // when set, cookies persist in SQLite instead of a JSON file
	NavigationTimeout time.Duration
	SelectorTimeout   time.Duration

	// Extraction settings
	ExtractionTimeout time.Duration
	DownloadWait      time.Duration
	SnapshotDir       string

	// Queue settings
	QueueCooldown  time.Duration
	QueueRetention time.Duration

	// Cache / rate limit settings
	CacheTTL           time.Duration
	RateLimitPerMinute int

	// Abuse protection
	TurnstileSiteKey   string
	TurnstileSecretKey string

	// Operator notifications
	DiscordAlertWebhook string
	DiscordLogWebhook   string

	// Stats
	StatsPath string

	// Scale-to-zero hosts
	IdleTimeout time.Duration
}

// Load creates a Config from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 5099),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		PlatformBaseURL:  getEnv("PLATFORM_BASE_URL", "https://www.scribd.com"),
		PlatformLogin:    getEnv("PLATFORM_EMAIL", ""),
		PlatformPassword: getEnv("PLATFORM_PASSWORD", ""),
		CDNMarker:        getEnv("PLATFORM_CDN_MARKER", "dl.scribd"),

		IMAPHost:         getEnv("IMAP_HOST", ""),
		IMAPPort:         getEnvInt("IMAP_PORT", 993),
		IMAPUser:         getEnv("IMAP_USER", ""),
		IMAPPassword:     getEnv("IMAP_PASSWORD", ""),
		OTPSubjectMarker: getEnv("OTP_SUBJECT_MARKER", "Scribd"),
		OTPLookback:      getEnvInt("OTP_LOOKBACK", 3),

		ChromePath:     getEnv("CHROME_PATH", ""),
		DisableStealth: getEnv("DISABLE_STEALTH", "false") == "true",

		SessionTTL:        getEnvDuration("SESSION_TTL", time.Hour),
		CookiePath:        getEnv("COOKIE_PATH", "cookies.json"),
		SessionDBPath:     getEnv("SESSION_DB_PATH", ""),
		NavigationTimeout: getEnvDuration("NAVIGATION_TIMEOUT", 15*time.Second),
		SelectorTimeout:   getEnvDuration("SELECTOR_TIMEOUT", 2*time.Second),

		ExtractionTimeout: getEnvDuration("EXTRACTION_TIMEOUT", 90*time.Second),
		DownloadWait:      getEnvDuration("DOWNLOAD_WAIT", 10*time.Second),
		SnapshotDir:       getEnv("SNAPSHOT_DIR", ""),

		QueueCooldown:  getEnvDuration("QUEUE_COOLDOWN", time.Second),
		QueueRetention: getEnvDuration("QUEUE_RETENTION", 5*time.Minute),

		CacheTTL:           getEnvDuration("CACHE_TTL", 5*time.Minute),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 10),

		TurnstileSiteKey:   getEnv("TURNSTILE_SITE_KEY", ""),
		TurnstileSecretKey: getEnv("TURNSTILE_SECRET_KEY", ""),

		DiscordAlertWebhook: getEnv("DISCORD_ALERT_WEBHOOK", ""),
		DiscordLogWebhook:   getEnv("DISCORD_LOG_WEBHOOK", ""),

		StatsPath: getEnv("STATS_PATH", "stats.json"),

		IdleTimeout: getEnvDuration("IDLE_TIMEOUT", 0),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
