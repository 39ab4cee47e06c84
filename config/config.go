package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIORNMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

type EnvironmentVariable struct {
	// All variables
	GO_ENV string
	PORT   int
	// Database Configuration
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	DB_SCHEMA    string
	// Redis Configuration
	REDIS_URL string
	// HTTP Configuration
	ALLOWED_ORIGINS     string
	RATE_LIMIT_REQUESTS int
	DEFAULT_PAGE_LIMIT  int
	// Swipes
	MATCH_DEDUPE bool
	// Image resolver
	WIKI_API_URL         string
	COMMONS_API_URL      string
	IMAGE_CALL_TIMEOUT   time.Duration
	IMAGE_TOTAL_BUDGET   time.Duration
	IMAGE_MAX_CANDIDATES int
	IMAGE_CACHE_TTL      time.Duration
	// Cron & import
	CRON_ENABLED            bool
	IMPORT_SCHEDULE         string
	IMPORT_PRIMARY_SOURCE   string
	IMPORT_SECONDARY_SOURCE string
	// DigitalOcean Spaces Configuration
	SPACES_ACCESS_KEY string
	SPACES_SECRET_KEY string
	SPACES_REGION     string
	SPACES_ENDPOINT   string
	// Logging
	LOG_LEVEL string
	LOG_FILE  string
}

func Get() (*EnvironmentVariable, error) {
	envVariables := &EnvironmentVariable{
		GO_ENV: os.Getenv("GO_ENV"),
		PORT:   getInt("PORT", 8080),
		// Database
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      getString("DB_HOST", "localhost"),
		DB_PORT:      getString("DB_PORT", "5432"),
		DB_SSL_MODE:  getString("DB_SSL_MODE", "disable"),
		DB_SCHEMA:    os.Getenv("DB_SCHEMA"),
		// Redis
		REDIS_URL: os.Getenv("REDIS_URL"),
		// HTTP
		ALLOWED_ORIGINS:     getString("ALLOWED_ORIGINS", "http://localhost:3000"),
		RATE_LIMIT_REQUESTS: getInt("RATE_LIMIT_REQUESTS", 100),
		DEFAULT_PAGE_LIMIT:  getInt("DEFAULT_PAGE_LIMIT", 100),
		// Swipes
		MATCH_DEDUPE: getBool("MATCH_DEDUPE", false),
		// Image resolver
		WIKI_API_URL:         getString("WIKI_API_URL", "https://en.wikipedia.org/w/api.php"),
		COMMONS_API_URL:      getString("COMMONS_API_URL", "https://commons.wikimedia.org/w/api.php"),
		IMAGE_CALL_TIMEOUT:   getDuration("IMAGE_CALL_TIMEOUT", 4*time.Second),
		IMAGE_TOTAL_BUDGET:   getDuration("IMAGE_TOTAL_BUDGET", 15*time.Second),
		IMAGE_MAX_CANDIDATES: getInt("IMAGE_MAX_CANDIDATES", 20),
		IMAGE_CACHE_TTL:      getDuration("IMAGE_CACHE_TTL", 24*time.Hour),
		// Cron & import
		CRON_ENABLED:            getBool("CRON_ENABLED", true),
		IMPORT_SCHEDULE:         os.Getenv("IMPORT_SCHEDULE"),
		IMPORT_PRIMARY_SOURCE:   os.Getenv("IMPORT_PRIMARY_SOURCE"),
		IMPORT_SECONDARY_SOURCE: os.Getenv("IMPORT_SECONDARY_SOURCE"),
		// DigitalOcean Spaces
		SPACES_ACCESS_KEY: os.Getenv("SPACES_ACCESS_KEY"),
		SPACES_SECRET_KEY: os.Getenv("SPACES_SECRET_KEY"),
		SPACES_REGION:     getString("SPACES_REGION", "nyc3"),
		SPACES_ENDPOINT:   os.Getenv("SPACES_ENDPOINT"),
		// Logging
		LOG_LEVEL: getString("LOG_LEVEL", "info"),
		LOG_FILE:  os.Getenv("LOG_FILE"),
	}

	if envVariables.DEFAULT_PAGE_LIMIT < 1 || envVariables.DEFAULT_PAGE_LIMIT > 100 {
		envVariables.DEFAULT_PAGE_LIMIT = 100
	}

	return envVariables, nil
}

// IsProduction reports whether GO_ENV is "production"
func (e *EnvironmentVariable) IsProduction() bool {
	return e.GO_ENV == "production"
}

// Origins splits ALLOWED_ORIGINS on commas
func (e *EnvironmentVariable) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(e.ALLOWED_ORIGINS, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}

func getBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}

// getDuration accepts Go duration strings ("5s") or a bare number of seconds
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
