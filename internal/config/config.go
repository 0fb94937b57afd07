package config

import (
	"database/sql"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cast"
)

type Config struct {
	Port        int
	DatabaseURL string
	RedisAddr   string

	TMDBAPIKey     string
	FanartTVAPIKey string
	TVDBAPIKey     string
	OMDbAPIKey     string
	YouTubeAPIKey  string

	Language string
	Region   string

	CacheTTL     time.Duration
	CallTimeout  time.Duration
	RunDeadline  time.Duration
	BulkCronSpec string
}

func Load() *Config {
	return &Config{
		Port:        envInt("PORT", 8080),
		DatabaseURL: env("DATABASE_URL", "postgres://enricharr:enricharr@db:5432/enricharr?sslmode=disable"),
		RedisAddr:   env("REDIS_ADDR", "redis:6379"),

		TMDBAPIKey:     env("TMDB_API_KEY", ""),
		FanartTVAPIKey: env("FANARTTV_API_KEY", ""),
		TVDBAPIKey:     env("TVDB_API_KEY", ""),
		OMDbAPIKey:     env("OMDB_API_KEY", ""),
		YouTubeAPIKey:  env("YOUTUBE_API_KEY", ""),

		Language: env("METADATA_LANGUAGE", "en"),
		Region:   env("METADATA_REGION", ""),

		CacheTTL:     envDuration("CACHE_TTL", time.Hour),
		CallTimeout:  envDuration("PROVIDER_CALL_TIMEOUT", 12*time.Second),
		RunDeadline:  envDuration("RESOLVE_RUN_DEADLINE", 30*time.Second),
		BulkCronSpec: env("BULK_CRON", "0 3 * * *"),
	}
}

// MergeFromDB overlays persisted settings on top of the environment. Keys
// written through the settings API win over env defaults.
func (c *Config) MergeFromDB(db *sql.DB) {
	rows, err := db.Query("SELECT key, value FROM system_settings")
	if err != nil {
		log.Printf("config: skipping DB merge: %v", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		switch key {
		case "tmdb_api_key":
			c.TMDBAPIKey = value
		case "fanarttv_api_key":
			c.FanartTVAPIKey = value
		case "tvdb_api_key":
			c.TVDBAPIKey = value
		case "omdb_api_key":
			c.OMDbAPIKey = value
		case "youtube_api_key":
			c.YouTubeAPIKey = value
		case "metadata_language":
			c.Language = value
		case "metadata_region":
			c.Region = value
		case "bulk_cron":
			c.BulkCronSpec = value
		case "cache_ttl_minutes":
			if m := cast.ToInt(value); m > 0 {
				c.CacheTTL = time.Duration(m) * time.Minute
			}
		}
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
