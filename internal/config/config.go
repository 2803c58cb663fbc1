package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds the environment-backed configuration consumed by the source
// adapters and the collection orchestrator.
type Config struct {
	// Google Custom Search credentials. Both lists are comma-separated;
	// keys and engine IDs are paired positionally, with the last engine ID
	// reused when there are fewer IDs than keys.
	GoogleAPIKeys   []string
	SearchEngineIDs []string

	// HTTP client behavior.
	RequestTimeout  time.Duration
	MaxRetries      int
	HostMinInterval time.Duration
	RespectRobots   bool
	Proxies         []string
	ExtraUserAgents []string

	// Orchestrator-level pacing for the metered API path, shared across
	// all workers regardless of pool size.
	APIMaxConcurrency int
	APIMinInterval    time.Duration

	// Deep-fetch of result pages on the API adapter.
	DeepFetch         bool
	DeepFetchMaxChars int

	// Document-store sink.
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	// Logging.
	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment, picking up a .env file in
// the working directory when one exists.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env file")
	}

	cfg := &Config{
		GoogleAPIKeys:     splitList(os.Getenv("GOOGLE_API_KEY")),
		SearchEngineIDs:   splitList(os.Getenv("GOOGLE_SEARCH_ENGINE_ID")),
		RequestTimeout:    30 * time.Second,
		MaxRetries:        envInt("SCRAPER_MAX_RETRIES", 3),
		HostMinInterval:   envMillis("REQUEST_MIN_INTERVAL_MS", 500*time.Millisecond),
		RespectRobots:     envBool("RESPECT_ROBOTS", true),
		Proxies:           splitList(os.Getenv("WEBSHARE_PROXIES")),
		ExtraUserAgents:   splitPipeList(os.Getenv("USER_AGENTS")),
		APIMaxConcurrency: envInt("API_MAX_CONCURRENCY", 2),
		APIMinInterval:    envMillis("API_MIN_INTERVAL_MS", 250*time.Millisecond),
		DeepFetch:         envBool("DEEP_FETCH", false),
		DeepFetchMaxChars: envInt("DEEP_FETCH_MAX_CHARS", 4000),
		MongoURI:          envString("MONGODB_URI", "mongodb://localhost:27017/"),
		MongoDatabase:     envString("MONGODB_DATABASE", "tuition_data"),
		MongoCollection:   envString("MONGODB_COLLECTION", "tutors_students"),
		LogLevel:          envString("LOG_LEVEL", "info"),
		LogFormat:         envString("LOG_FORMAT", "pretty"),
	}

	return cfg
}

// HasSearchAPI reports whether the Google Custom Search API is usable.
func (c *Config) HasSearchAPI() bool {
	return len(c.GoogleAPIKeys) > 0 && len(c.SearchEngineIDs) > 0
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitPipeList parses pipe-separated values; user agent strings routinely
// contain commas.
func splitPipeList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, "|") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring non-numeric env value")
		return fallback
	}
	return n
}

func envMillis(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring invalid interval env value")
		return fallback
	}
	return time.Duration(n) * time.Millisecond
}

func envBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}
