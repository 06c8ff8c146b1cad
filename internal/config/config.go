package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env string // "development", "production", etc.

	// Server
	ServerAddr string
	BaseURL    string // public URL, used for OAuth redirects and webhook callbacks

	// Storage
	DatabaseURL string
	RedisURL    string // optional; enables Redis sessions and the provider cache

	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json or text
	LogFile   string // optional rotated log file, in addition to stderr

	// OIDC
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string

	// Session
	SessionSecret string // Used for signing cookies (min 32 chars)

	// CORS
	CORSOrigins string // Comma-separated allowed origins

	// DataForSEO
	DataForSEOLogin     string
	DataForSEOPassword  string
	DataForSEOBaseURL   string
	DataForSEORateLimit float64       // requests per second
	DataForSEOCacheTTL  time.Duration // zero disables caching

	// Google Search Console
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Assistant (OpenAI-compatible chat completions endpoint)
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	// Outreach
	N8NWebhookURL         string
	OutreachWebhookSecret string // optional; required as X-Webhook-Secret on callbacks when set

	// Scheduled work
	CronSecret  string
	EnableJobs  bool
	ChromePath  string // optional Chrome binary for page analysis
	PageTimeout time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	baseURL := getEnv("APP_URL", "http://localhost:3000")
	return &Config{
		Env:        getEnv("ENV", "development"),
		ServerAddr: getEnv("SERVER_ADDR", ":3000"),
		BaseURL:    baseURL,

		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/seodesk?sslmode=disable"),
		RedisURL:    getEnv("REDIS_URL", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogFile:   getEnv("LOG_FILE", ""),

		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURL:  getEnv("OIDC_REDIRECT_URL", baseURL+"/auth/callback"),
		SessionSecret:    getEnv("SESSION_SECRET", "change-me-in-production-min-32-chars"),
		CORSOrigins:      getEnv("CORS_ORIGINS", ""),

		DataForSEOLogin:     getEnv("DATAFORSEO_LOGIN", ""),
		DataForSEOPassword:  getEnv("DATAFORSEO_PASSWORD", ""),
		DataForSEOBaseURL:   getEnv("DATAFORSEO_BASE_URL", "https://api.dataforseo.com/v3"),
		DataForSEORateLimit: getEnvFloat("DATAFORSEO_RATE_LIMIT", 2),
		DataForSEOCacheTTL:  getEnvDuration("DATAFORSEO_CACHE_TTL", 6*time.Hour),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URI", baseURL+"/api/gsc/callback"),

		LLMBaseURL: getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMAPIKey:  getEnv("LLM_API_KEY", ""),
		LLMModel:   getEnv("LLM_MODEL", "gpt-4o-mini"),

		N8NWebhookURL:         getEnv("N8N_WEBHOOK_URL", ""),
		OutreachWebhookSecret: getEnv("OUTREACH_WEBHOOK_SECRET", ""),

		CronSecret:  getEnv("CRON_SECRET", ""),
		EnableJobs:  getEnv("ENABLE_JOBS", "") != "",
		ChromePath:  getEnv("CHROME_PATH", ""),
		PageTimeout: getEnvDuration("PAGE_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// CallbackURL is the URL the outreach workflow posts status updates to.
func (c *Config) CallbackURL() string {
	return c.BaseURL + "/api/outreach/webhook-callback"
}

// HasDataForSEO returns true if provider credentials are configured.
func (c *Config) HasDataForSEO() bool {
	return c.DataForSEOLogin != "" && c.DataForSEOPassword != ""
}

// HasGSC returns true if Google OAuth credentials are configured.
func (c *Config) HasGSC() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}
