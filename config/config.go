package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	ServerAddr string

	// iTunes Search API
	ITunesBaseURL string

	// Discovery feed
	FeedKeywords     []string
	FeedKeywordsFile string // optional, hot-reloaded when set
	FeedVirtualTotal int    // synthetic totalElements for feed pagination

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	JWTSecret string

	// Per-IP rate limit: requests per window, window in seconds.
	RateLimitRequests int
	RateLimitWindow   int
}

// DefaultFeedKeywords is the curated keyword corpus used when FEED_KEYWORDS
// is not configured. Terms are chosen to return diverse, popular content.
var DefaultFeedKeywords = []string{
	"Top Hits 2025",
	"Pop Hits",
	"Rock Classics",
	"Hip Hop",
	"Indie Folk",
	"Electronic Dance",
	"R&B Soul",
	"Jazz Essentials",
	"Country Music",
	"Latin Hits",
	"Alternative Rock",
	"Classical Music",
	"Reggae",
	"Metal",
	"K-Pop",
	"French Pop",
	"Acoustic",
	"Chill Vibes",
	"Party Mix",
	"Throwback 90s",
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	cfg := &Config{
		ServerAddr:        getEnv("SERVER_ADDR", ":8080"),
		ITunesBaseURL:     getEnv("ITUNES_BASE_URL", "https://itunes.apple.com"),
		FeedKeywords:      parseKeywords(os.Getenv("FEED_KEYWORDS")),
		FeedKeywordsFile:  os.Getenv("FEED_KEYWORDS_FILE"),
		FeedVirtualTotal:  getEnvInt("FEED_VIRTUAL_TOTAL", 200),
		DBHost:            getEnv("DB_HOST", "127.0.0.1"),
		DBPort:            getEnv("DB_PORT", "3306"),
		DBUser:            getEnv("DB_USER", "root"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBName:            getEnv("DB_NAME", "echofm"),
		RedisHost:         getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:         getEnv("REDIS_PORT", "6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		JWTSecret:         getEnv("JWT_SECRET", "dev-secret-change-me"),
		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 120),
		RateLimitWindow:   getEnvInt("RATE_LIMIT_WINDOW", 60),
	}

	if len(cfg.FeedKeywords) < 2 {
		cfg.FeedKeywords = DefaultFeedKeywords
	}

	return cfg
}

// parseKeywords splits a comma separated keyword list, trimming blanks.
func parseKeywords(raw string) []string {
	if raw == "" {
		return nil
	}
	var keywords []string
	for _, part := range strings.Split(raw, ",") {
		if kw := strings.TrimSpace(part); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}
