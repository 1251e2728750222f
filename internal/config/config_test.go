package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Clean up env vars after test
	origEnv := make(map[string]string)
	envVars := []string{
		"PORT", "LOG_LEVEL", "PLATFORM_BASE_URL", "PLATFORM_EMAIL",
		"PLATFORM_PASSWORD", "PLATFORM_CDN_MARKER", "IMAP_HOST", "IMAP_PORT",
		"IMAP_USER", "IMAP_PASSWORD", "OTP_SUBJECT_MARKER", "OTP_LOOKBACK",
		"CHROME_PATH", "DISABLE_STEALTH", "SESSION_TTL", "COOKIE_PATH",
		"SESSION_DB_PATH", "NAVIGATION_TIMEOUT", "SELECTOR_TIMEOUT",
		"EXTRACTION_TIMEOUT", "DOWNLOAD_WAIT", "SNAPSHOT_DIR",
		"QUEUE_COOLDOWN", "QUEUE_RETENTION", "CACHE_TTL",
		"RATE_LIMIT_PER_MINUTE", "TURNSTILE_SITE_KEY", "TURNSTILE_SECRET_KEY",
		"DISCORD_ALERT_WEBHOOK", "DISCORD_LOG_WEBHOOK", "STATS_PATH",
		"IDLE_TIMEOUT",
	}

	for _, v := range envVars {
		origEnv[v] = os.Getenv(v)
	}
	defer func() {
		for k, v := range origEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("defaults", func(t *testing.T) {
		// Clear all env vars
		for _, v := range envVars {
			os.Unsetenv(v)
		}

		cfg := Load()

		if cfg.Port != 5099 {
			t.Errorf("Port = %d, want 5099", cfg.Port)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
		}
		if cfg.PlatformBaseURL != "https://www.scribd.com" {
			t.Errorf("PlatformBaseURL = %q, want scribd base", cfg.PlatformBaseURL)
		}
		if cfg.CDNMarker != "dl.scribd" {
			t.Errorf("CDNMarker = %q, want %q", cfg.CDNMarker, "dl.scribd")
		}
		if cfg.IMAPPort != 993 {
			t.Errorf("IMAPPort = %d, want 993", cfg.IMAPPort)
		}
		if cfg.OTPSubjectMarker != "Scribd" {
			t.Errorf("OTPSubjectMarker = %q, want %q", cfg.OTPSubjectMarker, "Scribd")
		}
		if cfg.OTPLookback != 3 {
			t.Errorf("OTPLookback = %d, want 3", cfg.OTPLookback)
		}
		if cfg.SessionTTL != time.Hour {
			t.Errorf("SessionTTL = %v, want 1h", cfg.SessionTTL)
		}
		if cfg.CookiePath != "cookies.json" {
			t.Errorf("CookiePath = %q, want cookies.json", cfg.CookiePath)
		}
		if cfg.NavigationTimeout != 15*time.Second {
			t.Errorf("NavigationTimeout = %v, want 15s", cfg.NavigationTimeout)
		}
		if cfg.SelectorTimeout != 2*time.Second {
			t.Errorf("SelectorTimeout = %v, want 2s", cfg.SelectorTimeout)
		}
		if cfg.QueueCooldown != time.Second {
			t.Errorf("QueueCooldown = %v, want 1s", cfg.QueueCooldown)
		}
		if cfg.QueueRetention != 5*time.Minute {
			t.Errorf("QueueRetention = %v, want 5m", cfg.QueueRetention)
		}
		if cfg.CacheTTL != 5*time.Minute {
			t.Errorf("CacheTTL = %v, want 5m", cfg.CacheTTL)
		}
		if cfg.RateLimitPerMinute != 10 {
			t.Errorf("RateLimitPerMinute = %d, want 10", cfg.RateLimitPerMinute)
		}
		if cfg.StatsPath != "stats.json" {
			t.Errorf("StatsPath = %q, want stats.json", cfg.StatsPath)
		}
		if cfg.IdleTimeout != 0 {
			t.Errorf("IdleTimeout = %v, want 0", cfg.IdleTimeout)
		}
	})

	t.Run("from env", func(t *testing.T) {
		os.Setenv("PORT", "9000")
		os.Setenv("LOG_LEVEL", "debug")
		os.Setenv("PLATFORM_BASE_URL", "https://docs.example.com")
		os.Setenv("PLATFORM_EMAIL", "bot@example.com")
		os.Setenv("PLATFORM_PASSWORD", "hunter2")
		os.Setenv("IMAP_HOST", "imap.zoho.com")
		os.Setenv("IMAP_PORT", "1993")
		os.Setenv("OTP_SUBJECT_MARKER", "Example")
		os.Setenv("CHROME_PATH", "/usr/bin/chromium")
		os.Setenv("SESSION_TTL", "30m")
		os.Setenv("SESSION_DB_PATH", "/data/sessions.db")
		os.Setenv("EXTRACTION_TIMEOUT", "120s")
		os.Setenv("QUEUE_COOLDOWN", "2s")
		os.Setenv("RATE_LIMIT_PER_MINUTE", "20")
		os.Setenv("TURNSTILE_SECRET_KEY", "ts-secret")
		os.Setenv("DISCORD_ALERT_WEBHOOK", "https://discord.test/alert")

		cfg := Load()

		if cfg.Port != 9000 {
			t.Errorf("Port = %d, want 9000", cfg.Port)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
		}
		if cfg.PlatformBaseURL != "https://docs.example.com" {
			t.Errorf("PlatformBaseURL = %q, want override", cfg.PlatformBaseURL)
		}
		if cfg.PlatformLogin != "bot@example.com" {
			t.Errorf("PlatformLogin = %q, want bot@example.com", cfg.PlatformLogin)
		}
		if cfg.IMAPHost != "imap.zoho.com" {
			t.Errorf("IMAPHost = %q, want imap.zoho.com", cfg.IMAPHost)
		}
		if cfg.IMAPPort != 1993 {
			t.Errorf("IMAPPort = %d, want 1993", cfg.IMAPPort)
		}
		if cfg.OTPSubjectMarker != "Example" {
			t.Errorf("OTPSubjectMarker = %q, want Example", cfg.OTPSubjectMarker)
		}
		if cfg.ChromePath != "/usr/bin/chromium" {
			t.Errorf("ChromePath = %q, want /usr/bin/chromium", cfg.ChromePath)
		}
		if cfg.SessionTTL != 30*time.Minute {
			t.Errorf("SessionTTL = %v, want 30m", cfg.SessionTTL)
		}
		if cfg.SessionDBPath != "/data/sessions.db" {
			t.Errorf("SessionDBPath = %q, want /data/sessions.db", cfg.SessionDBPath)
		}
		if cfg.ExtractionTimeout != 120*time.Second {
			t.Errorf("ExtractionTimeout = %v, want 120s", cfg.ExtractionTimeout)
		}
		if cfg.QueueCooldown != 2*time.Second {
			t.Errorf("QueueCooldown = %v, want 2s", cfg.QueueCooldown)
		}
		if cfg.RateLimitPerMinute != 20 {
			t.Errorf("RateLimitPerMinute = %d, want 20", cfg.RateLimitPerMinute)
		}
		if cfg.TurnstileSecretKey != "ts-secret" {
			t.Errorf("TurnstileSecretKey = %q, want ts-secret", cfg.TurnstileSecretKey)
		}
		if cfg.DiscordAlertWebhook != "https://discord.test/alert" {
			t.Errorf("DiscordAlertWebhook = %q, want override", cfg.DiscordAlertWebhook)
		}
	})

	t.Run("invalid values use defaults", func(t *testing.T) {
		os.Setenv("PORT", "not-a-number")
		os.Setenv("SESSION_TTL", "invalid-duration")

		cfg := Load()

		if cfg.Port != 5099 {
			t.Errorf("Port with invalid value = %d, want default 5099", cfg.Port)
		}
		if cfg.SessionTTL != time.Hour {
			t.Errorf("SessionTTL with invalid value = %v, want default 1h", cfg.SessionTTL)
		}
	})
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_VAR", "test-value")
	defer os.Unsetenv("TEST_VAR")

	if got := getEnv("TEST_VAR", "default"); got != "test-value" {
		t.Errorf("getEnv() = %q, want %q", got, "test-value")
	}

	if got := getEnv("NONEXISTENT_VAR", "default"); got != "default" {
		t.Errorf("getEnv() for missing var = %q, want %q", got, "default")
	}
}

func TestGetEnvInt(t *testing.T) {
	os.Setenv("TEST_INT", "42")
	defer os.Unsetenv("TEST_INT")

	if got := getEnvInt("TEST_INT", 0); got != 42 {
		t.Errorf("getEnvInt() = %d, want %d", got, 42)
	}

	os.Setenv("TEST_INT", "not-a-number")
	if got := getEnvInt("TEST_INT", 10); got != 10 {
		t.Errorf("getEnvInt() with invalid value = %d, want default %d", got, 10)
	}
}

func TestGetEnvDuration(t *testing.T) {
	os.Setenv("TEST_DUR", "5m")
	defer os.Unsetenv("TEST_DUR")

	if got := getEnvDuration("TEST_DUR", time.Second); got != 5*time.Minute {
		t.Errorf("getEnvDuration() = %v, want %v", got, 5*time.Minute)
	}

	os.Setenv("TEST_DUR", "invalid")
	if got := getEnvDuration("TEST_DUR", time.Hour); got != time.Hour {
		t.Errorf("getEnvDuration() with invalid value = %v, want default %v", got, time.Hour)
	}
}
