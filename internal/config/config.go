// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as posting cadence and active hours, engagement policy, daily quota
// limits, content generation, storage retention, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings for the admin API.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-xbot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// PostingConfig controls the scheduled publication of new posts.
type PostingConfig struct {
	Enabled         bool   // POSTING_ENABLED
	FrequencyPerDay int    // POSTING_FREQUENCY_PER_DAY (spread across the window)
	WindowStart     string // POSTING_WINDOW_START "HH:MM"
	WindowEnd       string // POSTING_WINDOW_END "HH:MM" (may be < start: wraps midnight)
	Timezone        string // POSTING_TIMEZONE (IANA name)
	Topics          []string
}

// EngagementConfig controls reply polling and the auto-like / auto-reply policy.
type EngagementConfig struct {
	AutoLike               bool          // AUTO_LIKE_REPLIES
	AutoReply              bool          // AUTO_REPLY_ENABLED
	PollInterval           time.Duration // REPLY_POLL_INTERVAL
	MaxLikesPerDay         int           // LIKES_PER_DAY (<=0 means unlimited)
	MaxRepliesPerDay       int           // MAX_REPLIES_PER_DAY (<=0 means unlimited)
	RepliesPerConversation int           // MAX_REPLIES_PER_CONVERSATION
	PollAroundTheClock     bool          // REPLY_CHECK_24H; false gates polling to the posting window
}

// QuotaConfig carries the daily platform quota limits per operation kind.
// A limit <= 0 means unlimited for that kind.
type QuotaConfig struct {
	PostsPerDay int // QUOTA_POSTS_PER_DAY
	ReadsPerDay int // QUOTA_READS_PER_DAY
	LikesPerDay int // mirrors EngagementConfig.MaxLikesPerDay
}

// PlatformConfig identifies the bot's own account on the social platform.
type PlatformConfig struct {
	AccountID string // PLATFORM_ACCOUNT_ID; empty selects the dry-run gateway
}

// ContentConfig configures the generation providers.
type ContentConfig struct {
	APIKey          string  // OPENAI_API_KEY; empty disables the hosted provider
	Model           string  // CONTENT_MODEL (e.g. "gpt-4o-mini")
	FallbackBaseURL string  // CONTENT_FALLBACK_BASE_URL (OpenAI-compatible local endpoint; empty disables)
	FallbackModel   string  // CONTENT_FALLBACK_MODEL
	MaxTokens       int     // CONTENT_MAX_TOKENS
	Temperature     float32 // CONTENT_TEMPERATURE
	MaxPostRunes    int     // platform hard character limit
}

// MonitoringConfig controls metric collection and the daily report.
type MonitoringConfig struct {
	CollectStats  bool          // COLLECT_STATS
	StatsInterval time.Duration // STATS_INTERVAL
	DailyReport   bool          // DAILY_REPORT
	ReportTime    string        // REPORT_TIME "HH:MM"
}

// StorageConfig controls retention of persisted history.
type StorageConfig struct {
	KeepHistoryDays int // KEEP_HISTORY_DAYS
	CleanupEvery    int // CLEANUP_EVERY_DAYS (days between cleanup runs)
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// App
	DBPath string // SQLite path

	Platform   PlatformConfig
	Posting    PostingConfig
	Engagement EngagementConfig
	Quota      QuotaConfig
	Content    ContentConfig
	Monitoring MonitoringConfig
	Storage    StorageConfig

	// Rate limiting (admin API)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// App
		DBPath: getenv("DB_PATH", "xbot.db"),

		Platform: PlatformConfig{
			AccountID: getenv("PLATFORM_ACCOUNT_ID", ""),
		},

		Posting: PostingConfig{
			Enabled:         getbool("POSTING_ENABLED", true),
			FrequencyPerDay: getint("POSTING_FREQUENCY_PER_DAY", 3),
			WindowStart:     getenv("POSTING_WINDOW_START", "09:00"),
			WindowEnd:       getenv("POSTING_WINDOW_END", "21:00"),
			Timezone:        getenv("POSTING_TIMEZONE", "Europe/Paris"),
			Topics:          splitCSV(getenv("POSTING_TOPICS", "")),
		},

		Engagement: EngagementConfig{
			AutoLike:               getbool("AUTO_LIKE_REPLIES", true),
			AutoReply:              getbool("AUTO_REPLY_ENABLED", false),
			PollInterval:           getdur("REPLY_POLL_INTERVAL", 15*time.Minute),
			MaxLikesPerDay:         getint("LIKES_PER_DAY", 100),
			MaxRepliesPerDay:       getint("MAX_REPLIES_PER_DAY", 20),
			RepliesPerConversation: getint("MAX_REPLIES_PER_CONVERSATION", 1),
			PollAroundTheClock:     getbool("REPLY_CHECK_24H", true),
		},

		Quota: QuotaConfig{
			PostsPerDay: getint("QUOTA_POSTS_PER_DAY", 17),
			ReadsPerDay: getint("QUOTA_READS_PER_DAY", 500),
		},

		Content: ContentConfig{
			APIKey:          getenv("OPENAI_API_KEY", ""),
			Model:           getenv("CONTENT_MODEL", "gpt-4o-mini"),
			FallbackBaseURL: getenv("CONTENT_FALLBACK_BASE_URL", ""),
			FallbackModel:   getenv("CONTENT_FALLBACK_MODEL", ""),
			MaxTokens:       getint("CONTENT_MAX_TOKENS", 150),
			Temperature:     float32(getfloat("CONTENT_TEMPERATURE", 0.7)),
			MaxPostRunes:    getint("CONTENT_MAX_POST_RUNES", 280),
		},

		Monitoring: MonitoringConfig{
			CollectStats:  getbool("COLLECT_STATS", true),
			StatsInterval: getdur("STATS_INTERVAL", time.Hour),
			DailyReport:   getbool("DAILY_REPORT", true),
			ReportTime:    getenv("REPORT_TIME", "08:00"),
		},

		Storage: StorageConfig{
			KeepHistoryDays: getint("KEEP_HISTORY_DAYS", 90),
			CleanupEvery:    getint("CLEANUP_EVERY_DAYS", 7),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-xbot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// The likes quota is owned by the engagement section; mirror it so the
	// quota tracker sees all three kinds in one place.
	cfg.Quota.LikesPerDay = cfg.Engagement.MaxLikesPerDay

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.Posting.FrequencyPerDay < 1 || cfg.Posting.FrequencyPerDay > 50 {
		return cfg, errors.New("POSTING_FREQUENCY_PER_DAY must be between 1 and 50")
	}
	if !validClock(cfg.Posting.WindowStart) || !validClock(cfg.Posting.WindowEnd) {
		return cfg, errors.New("POSTING_WINDOW_START/END must be HH:MM clock times")
	}
	if _, err := time.LoadLocation(cfg.Posting.Timezone); err != nil {
		return cfg, errors.New("POSTING_TIMEZONE must be a valid IANA timezone")
	}
	if cfg.Engagement.PollInterval < time.Minute || cfg.Engagement.PollInterval > time.Hour {
		return cfg, errors.New("REPLY_POLL_INTERVAL must be between 1m and 1h")
	}
	if cfg.Engagement.RepliesPerConversation < 0 || cfg.Engagement.RepliesPerConversation > 5 {
		return cfg, errors.New("MAX_REPLIES_PER_CONVERSATION must be between 0 and 5")
	}
	if !validClock(cfg.Monitoring.ReportTime) {
		return cfg, errors.New("REPORT_TIME must be an HH:MM clock time")
	}
	if cfg.Monitoring.StatsInterval < time.Minute {
		return cfg, errors.New("STATS_INTERVAL must be at least 1m")
	}
	if cfg.Storage.KeepHistoryDays < 7 || cfg.Storage.KeepHistoryDays > 365 {
		return cfg, errors.New("KEEP_HISTORY_DAYS must be between 7 and 365")
	}
	if cfg.Storage.CleanupEvery < 1 || cfg.Storage.CleanupEvery > 30 {
		return cfg, errors.New("CLEANUP_EVERY_DAYS must be between 1 and 30")
	}
	if cfg.Content.MaxPostRunes <= 0 {
		return cfg, errors.New("CONTENT_MAX_POST_RUNES must be > 0")
	}
	if cfg.Content.Temperature < 0 || cfg.Content.Temperature > 1 {
		return cfg, errors.New("CONTENT_TEMPERATURE must be in [0,1]")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// validClock reports whether s parses as an "HH:MM" wall-clock time.
func validClock(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}
