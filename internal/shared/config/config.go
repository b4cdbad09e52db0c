package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"lumacheckin/internal/shared/constants"
)

// Config holds all configuration for our application
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	AllowedOrigins []string
	TrustedProxies []string

	// Luma API
	Luma LumaConfig

	// Redis configuration
	Redis RedisConfig

	// Rate limiting
	RateLimit RateLimitConfig

	// Scanner page assets
	Scanner ScannerConfig

	// Check-in event publishing
	Kafka KafkaConfig

	// Logging
	LogLevel string
}

// LumaConfig holds the remote event API configuration
type LumaConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled         bool          `json:"enabled"`
	WindowDuration  time.Duration `json:"window_duration"`
	DefaultRequests int           `json:"default_requests"`
	CheckinRequests int           `json:"checkin_requests"`
	PageRequests    int           `json:"page_requests"`
	HealthRequests  int           `json:"health_requests"`
	WhitelistedIPs  []string      `json:"whitelisted_ips"`
}

// ScannerConfig holds the QR decoder script sources served to the scanner page
type ScannerConfig struct {
	ScriptSources   []string
	ScriptTimeout   time.Duration
	ScriptTTL       time.Duration
	RefreshInterval time.Duration
}

// KafkaConfig holds check-in event publishing configuration
type KafkaConfig struct {
	Enabled        bool
	Brokers        []string
	CheckinTopic   string
	QueueSize      int
	PublishTimeout time.Duration
}

// DefaultScriptSources are tried in order until one answers
var DefaultScriptSources = []string{
	"https://unpkg.com/html5-qrcode@2.3.10/minified/html5-qrcode.min.js",
	"https://cdn.jsdelivr.net/npm/html5-qrcode@2.3.10/minified/html5-qrcode.min.js",
	"https://esm.sh/html5-qrcode@2.3.10?bundle",
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		// Server configuration
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB
		AllowedOrigins: getStringSliceEnv("CORS_ALLOWED_ORIGINS", []string{}),
		TrustedProxies: getStringSliceEnv("TRUSTED_PROXIES", nil),

		// Luma API
		Luma: LumaConfig{
			APIKey:  os.Getenv("LUMA_API_KEY"),
			BaseURL: getEnv("LUMA_BASE_URL", "https://public-api.luma.com"),
			Timeout: getDurationEnv("LUMA_TIMEOUT", 8*time.Second),
		},

		// Redis configuration
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},

		// Rate limiting
		RateLimit: RateLimitConfig{
			Enabled:         getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:  getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests: getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 120),
			CheckinRequests: getIntEnv("RATE_LIMIT_CHECKIN_REQUESTS", 60),
			PageRequests:    getIntEnv("RATE_LIMIT_PAGE_REQUESTS", 120),
			HealthRequests:  getIntEnv("RATE_LIMIT_HEALTH_REQUESTS", 600),
			WhitelistedIPs:  getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		// Scanner assets
		Scanner: ScannerConfig{
			ScriptSources:   getStringSliceEnv("SCANNER_SCRIPT_SOURCES", DefaultScriptSources),
			ScriptTimeout:   getDurationEnv("SCANNER_SCRIPT_TIMEOUT", 6*time.Second),
			ScriptTTL:       getDurationEnv("SCANNER_SCRIPT_TTL", constants.TTL_ASSET_SCRIPT),
			RefreshInterval: getDurationEnv("SCANNER_SCRIPT_REFRESH", constants.TTL_STATIC_MEDIUM),
		},

		// Kafka
		Kafka: KafkaConfig{
			Enabled:        getBoolEnv("KAFKA_ENABLED", false),
			Brokers:        getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			CheckinTopic:   getEnv("KAFKA_CHECKIN_TOPIC", "guest-checkins"),
			QueueSize:      getIntEnv("KAFKA_QUEUE_SIZE", 256),
			PublishTimeout: getDurationEnv("KAFKA_PUBLISH_TIMEOUT", 10*time.Second),
		},

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	// Build composite values
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port
	cfg.Luma.Timeout = fitLumaTimeout(cfg.Luma.Timeout, cfg.WriteTimeout)

	return cfg
}

// lumaCallsPerCheckin is the most sequential Luma calls one check-in makes
const lumaCallsPerCheckin = 3

// fitLumaTimeout caps the per-call timeout so a check-in's Luma calls finish
// before the server's write deadline, with a second to spare for the response
func fitLumaTimeout(timeout, writeTimeout time.Duration) time.Duration {
	if writeTimeout <= 0 {
		return timeout
	}
	limit := (writeTimeout - time.Second) / lumaCallsPerCheckin
	if limit > 0 && timeout > limit {
		return limit
	}
	return timeout
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix
}

// GetCheckinPath returns the path the scanner page posts to
func (c *Config) GetCheckinPath() string {
	return c.GetAPIBasePath() + "/checkin"
}
