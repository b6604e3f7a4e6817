// Package config loads runtime configuration from LIBROVISION_-prefixed
// environment variables.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ListenAddr string

	PostgrestURL    string
	PostgrestAPIKey string
	PostgrestSchema string

	RedisAddr     string
	RedisDB       int
	RedisPassword string

	CacheNamespace  string
	MemoryCapacity  int
	DefaultMaxAge   time.Duration
	SearchResultTTL time.Duration

	CatalogBaseURL string
	CatalogAPIKey  string
}

func Load() (Config, error) {
	cfg := Config{
		ListenAddr:      getenv("LIBROVISION_LISTEN_ADDR", ":8080"),
		PostgrestURL:    getenv("LIBROVISION_POSTGREST_URL", ""),
		PostgrestAPIKey: os.Getenv("LIBROVISION_POSTGREST_API_KEY"),
		PostgrestSchema: getenv("LIBROVISION_POSTGREST_SCHEMA", "public"),
		RedisAddr:       getenv("LIBROVISION_REDIS_ADDR", ""),
		RedisDB:         getenvInt("LIBROVISION_REDIS_DB", 0),
		RedisPassword:   os.Getenv("LIBROVISION_REDIS_PASSWORD"),
		CacheNamespace:  getenv("LIBROVISION_CACHE_NAMESPACE", "librovision:cache:"),
		MemoryCapacity:  getenvInt("LIBROVISION_MEMORY_CAPACITY", 1000),
		DefaultMaxAge:   getenvDuration("LIBROVISION_DEFAULT_MAX_AGE", 5*time.Minute),
		SearchResultTTL: getenvDuration("LIBROVISION_SEARCH_RESULT_TTL", 10*time.Minute),
		CatalogBaseURL:  getenv("LIBROVISION_CATALOG_BASE_URL", "https://www.googleapis.com/books/v1"),
		CatalogAPIKey:   os.Getenv("LIBROVISION_CATALOG_API_KEY"),
	}

	if cfg.PostgrestURL == "" {
		return cfg, errors.New("LIBROVISION_POSTGREST_URL is required")
	}
	if cfg.PostgrestAPIKey == "" {
		return cfg, errors.New("LIBROVISION_POSTGREST_API_KEY is required")
	}
	// RedisAddr may stay empty: the durable tier is optional and the cache
	// runs memory-plus-session without it.
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
