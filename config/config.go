package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all runtime configuration, loaded once at startup from the
// environment.
type Config struct {
	Port         string
	DataDir      string
	DatabasePath string
	LogFile      string
	Debug        bool
	OMDbAPIKey   string
	CacheTTL     time.Duration
	SessionTTL   time.Duration
	HTTPTimeout  time.Duration

	// Seed credentials for the initial admin user. AdminPassword is
	// generated when empty.
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// Load reads configuration from environment variables, applying defaults
// suitable for local development.
func Load() *Config {
	dataDir := getEnv("DATA_DIR", "./data")

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DataDir:       dataDir,
		DatabasePath:  filepath.Join(dataDir, "movies.db"),
		LogFile:       os.Getenv("LOG_FILE"),
		Debug:         getEnvBool("DEBUG", false),
		OMDbAPIKey:    os.Getenv("OMDB_API_KEY"),
		CacheTTL:      time.Duration(getEnvInt("CACHE_TTL_HOURS", 24)) * time.Hour,
		SessionTTL:    time.Duration(getEnvInt("SESSION_DURATION_HOURS", 30*24)) * time.Hour,
		HTTPTimeout:   time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 10)) * time.Second,
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@localhost"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
