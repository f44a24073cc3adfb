package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	DatabaseType    string
	DatabasePath    string
	DatabaseURL     string
	SessionDuration time.Duration
	TokenSecret     string
	TokenDuration   time.Duration
	CSRFSecret      string
	SchoolTimezone  string
	LogLevel        string
	RateLimit       int

	// TrustedProxies lists proxy addresses or CIDRs whose forwarding headers are honoured
	TrustedProxies []string

	GoogleClientID       string
	GoogleClientSecret   string
	FacebookClientID     string
	FacebookClientSecret string
	OAuthRedirectBaseURL string
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		ServerPort:      getEnv("PORT", "8080"),
		DatabaseType:    getEnv("DB_TYPE", "sqlite"),
		DatabasePath:    getEnv("DB_PATH", "./schoollunch.db"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SessionDuration: getEnvDuration("SESSION_DURATION", 24*time.Hour),
		TokenSecret:     getEnv("TOKEN_SECRET", "change-me-token-secret"),
		TokenDuration:   getEnvDuration("TOKEN_DURATION", 24*time.Hour),
		CSRFSecret:      getEnv("CSRF_SECRET", "change-me-csrf-secret"),
		SchoolTimezone:  getEnv("SCHOOL_TIMEZONE", "Local"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		RateLimit:       getEnvInt("RATE_LIMIT_PER_MINUTE", 10),
		TrustedProxies:  getEnvList("TRUSTED_PROXIES"),

		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		FacebookClientID:     getEnv("FACEBOOK_CLIENT_ID", ""),
		FacebookClientSecret: getEnv("FACEBOOK_CLIENT_SECRET", ""),
		OAuthRedirectBaseURL: getEnv("OAUTH_REDIRECT_BASE_URL", ""),
	}
}

// Location resolves the school time zone used to decide what "today" is.
// Unknown names fall back to the server's local zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.SchoolTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

// getEnvList splits a comma-separated variable, dropping empty entries
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
