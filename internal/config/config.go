package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port     string
	LogLevel string

	// Storage. An empty DatabaseURL selects the in-memory store.
	DatabaseURL    string
	DBQueryTimeout time.Duration

	CollectionsConfigPath string

	// Rebuild trigger. RebuildHookURL wins over the GitHub settings.
	RebuildHookURL    string
	RebuildHookToken  string
	GitHubToken       string
	GitHubRepo        string
	GitHubAPIURL      string
	RebuildEventType  string
	RebuildCooldown   time.Duration
	RebuildMaxEntries int
	RebuildTimeout    time.Duration

	// Geocoder
	GeocodeURL                string
	GeocodeUserAgent          string
	GeocodeInterval           time.Duration
	GeocodeTimeout            time.Duration
	GeocodeBreakerMaxFailures int
	GeocodeBreakerReset       time.Duration
}

func Load() Config {
	return Config{
		Port:                      getEnv("PORT", "8080"),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		DatabaseURL:               getEnv("DATABASE_URL", ""),
		DBQueryTimeout:            getEnvDuration("DB_QUERY_TIMEOUT", 5*time.Second),
		CollectionsConfigPath:     getEnv("COLLECTIONS_CONFIG_PATH", ""),
		RebuildHookURL:            getEnv("REBUILD_HOOK_URL", ""),
		RebuildHookToken:          getEnv("REBUILD_HOOK_TOKEN", ""),
		GitHubToken:               getEnv("GITHUB_TOKEN", ""),
		GitHubRepo:                getEnv("GITHUB_REPO", ""),
		GitHubAPIURL:              getEnv("GITHUB_API_URL", "https://api.github.com"),
		RebuildEventType:          getEnv("REBUILD_EVENT_TYPE", "deploy-frontend"),
		RebuildCooldown:           getEnvDuration("REBUILD_COOLDOWN", 10*time.Second),
		RebuildMaxEntries:         getEnvInt("REBUILD_REGISTRY_MAX_ENTRIES", 10000),
		RebuildTimeout:            getEnvDuration("REBUILD_TIMEOUT", 10*time.Second),
		GeocodeURL:                getEnv("GEOCODE_URL", "https://nominatim.openstreetmap.org/search"),
		GeocodeUserAgent:          getEnv("GEOCODE_USER_AGENT", "HIVConnectCNJ/1.0 (hivconnectcnj.org)"),
		GeocodeInterval:           getEnvDuration("GEOCODE_INTERVAL", time.Second),
		GeocodeTimeout:            getEnvDuration("GEOCODE_TIMEOUT", 10*time.Second),
		GeocodeBreakerMaxFailures: getEnvInt("GEOCODE_BREAKER_MAX_FAILURES", 5),
		GeocodeBreakerReset:       getEnvDuration("GEOCODE_BREAKER_RESET", time.Minute),
	}
}

// ParseLogLevel maps LOG_LEVEL to a slog level. Unknown values mean info.
func ParseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "error", err)
			return fallback
		}
		return n
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "error", err)
			return fallback
		}
		return d
	}
	return fallback
}
