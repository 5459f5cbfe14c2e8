package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the adboard application.
type Config struct {
	Server    ServerConfig
	Insights  InsightsConfig
	Sheets    SheetsConfig
	Cache     CacheConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

// InsightsConfig configures the ads insights API client.
type InsightsConfig struct {
	BaseURL     string
	ExportURL   string
	APIVersion  string
	AccessToken string
	Locale      string
	// AccountIDs are fetched in order; the merge preserves this order.
	AccountIDs []int64
	DatePreset string
	// ReportWait is the fixed delay between requesting a report and
	// fetching the export. Report generation is asynchronous and the
	// API exposes no completion signal.
	ReportWait time.Duration
	// PollAttempts > 1 enables backoff polling of the export endpoint
	// instead of a single fetch after ReportWait.
	PollAttempts    int
	PollBackoffBase time.Duration
	PollBackoffMax  time.Duration
}

// SheetsConfig configures the mapping-reference spreadsheet source.
type SheetsConfig struct {
	BaseURL       string
	SpreadsheetID string
	Worksheet     string
	APIKey        string
}

// CacheConfig configures the report memoization cache.
type CacheConfig struct {
	TTL time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("ADBOARD_HTTP_ADDR", ":8080"),
			Env:             getEnv("ADBOARD_ENV", "development"),
			ShutdownTimeout: getDurationEnv("ADBOARD_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Insights: InsightsConfig{
			BaseURL:         getEnv("ADBOARD_INSIGHTS_BASE_URL", "https://graph.facebook.com"),
			ExportURL:       getEnv("ADBOARD_INSIGHTS_EXPORT_URL", "https://www.facebook.com/ads/ads_insights/export_report"),
			APIVersion:      getEnv("ADBOARD_INSIGHTS_API_VERSION", "v16.0"),
			AccessToken:     getEnv("ADBOARD_INSIGHTS_ACCESS_TOKEN", ""),
			Locale:          getEnv("ADBOARD_INSIGHTS_LOCALE", "en_US"),
			AccountIDs:      getInt64SliceEnv("ADBOARD_INSIGHTS_ACCOUNT_IDS", nil),
			DatePreset:      getEnv("ADBOARD_INSIGHTS_DATE_PRESET", "last_90d"),
			ReportWait:      getDurationEnv("ADBOARD_INSIGHTS_REPORT_WAIT", 60*time.Second),
			PollAttempts:    getIntEnv("ADBOARD_INSIGHTS_POLL_ATTEMPTS", 1),
			PollBackoffBase: getDurationEnv("ADBOARD_INSIGHTS_POLL_BACKOFF_BASE", 5*time.Second),
			PollBackoffMax:  getDurationEnv("ADBOARD_INSIGHTS_POLL_BACKOFF_MAX", 60*time.Second),
		},
		Sheets: SheetsConfig{
			BaseURL:       getEnv("ADBOARD_SHEETS_BASE_URL", "https://sheets.googleapis.com"),
			SpreadsheetID: getEnv("ADBOARD_SHEETS_SPREADSHEET_ID", ""),
			Worksheet:     getEnv("ADBOARD_SHEETS_WORKSHEET", "Mapping_ref"),
			APIKey:        getEnv("ADBOARD_SHEETS_API_KEY", ""),
		},
		Cache: CacheConfig{
			TTL: getDurationEnv("ADBOARD_CACHE_TTL", 24*time.Hour),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("ADBOARD_REDIS_ENABLED", false),
			Addr:     getEnv("ADBOARD_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("ADBOARD_REDIS_PASSWORD", ""),
			DB:       getIntEnv("ADBOARD_REDIS_DB", 0),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("ADBOARD_AUTH_ENABLED", false),
			MasterKey: getEnv("ADBOARD_API_KEY_MASTER", ""),
			SkipPaths: getSliceEnv("ADBOARD_AUTH_SKIP_PATHS", []string{"/health", "/metrics"}),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolEnv("ADBOARD_RATE_LIMIT_ENABLED", true),
			RPS:     getFloatEnv("ADBOARD_RATE_LIMIT_RPS", 50),
			Burst:   getIntEnv("ADBOARD_RATE_LIMIT_BURST", 20),
		},
		Log: LogConfig{
			Level:  getEnv("ADBOARD_LOG_LEVEL", "info"),
			Format: getEnv("ADBOARD_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("ADBOARD_METRICS_ENABLED", true),
			Path:    getEnv("ADBOARD_METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Insights.AccessToken == "" {
		return fmt.Errorf("ADBOARD_INSIGHTS_ACCESS_TOKEN is required")
	}
	if len(c.Insights.AccountIDs) == 0 {
		return fmt.Errorf("ADBOARD_INSIGHTS_ACCOUNT_IDS is required")
	}
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("ADBOARD_API_KEY_MASTER is required when auth is enabled")
	}
	if c.Insights.PollAttempts < 1 {
		return fmt.Errorf("ADBOARD_INSIGHTS_POLL_ATTEMPTS must be at least 1")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}

func getInt64SliceEnv(key string, def []int64) []int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]int64, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if i, err := strconv.ParseInt(p, 10, 64); err == nil {
				result = append(result, i)
			}
		}
		return result
	}
	return def
}
