// Package config provides centralized configuration for the blockpress server.
// Values come from environment variables, optionally seeded from a .env.local
// file, with sensible defaults.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all server configuration values.
type Config struct {
	// Port is the HTTP server listen port.
	Port string

	// DBPath is the path to the SQLite database file.
	DBPath string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// FeedTimeout bounds a single fetch of the dynamic article list.
	FeedTimeout time.Duration

	// FeedCacheTTL is how long a fetched dynamic list is reused. Zero disables caching.
	FeedCacheTTL time.Duration

	// RefreshInterval is the polling interval of the background feed refresher.
	RefreshInterval time.Duration

	// ImportFetch selects the URL import fetcher: "http" or "stub".
	ImportFetch string

	// ImportTimeout is the timeout for fetching a page to import.
	ImportTimeout time.Duration

	// ImportMaxBytes caps the size of a fetched import page.
	ImportMaxBytes int

	// CORSOrigin is the allowed CORS origin. Defaults to "*".
	CORSOrigin string
}

// Load reads configuration from environment variables, applying defaults.
// A .env.local file in the working directory is loaded first; variables that
// are already set in the environment win.
func Load() Config {
	loadEnvFile(".env.local")
	return Config{
		Port:            envOr("PORT", "8080"),
		DBPath:          envOr("DB_PATH", "blockpress.db"),
		LogLevel:        envOr("LOG_LEVEL", "info"),
		FeedTimeout:     envDuration("FEED_TIMEOUT", 3*time.Second),
		FeedCacheTTL:    envDuration("FEED_CACHE_TTL", 30*time.Second),
		RefreshInterval: envDuration("REFRESH_INTERVAL", time.Minute),
		ImportFetch:     envOr("IMPORT_FETCH", "http"),
		ImportTimeout:   envDuration("IMPORT_TIMEOUT", 20*time.Second),
		ImportMaxBytes:  envInt("IMPORT_MAX_BYTES", 5*1024*1024),
		CORSOrigin:      envOr("CORS_ORIGIN", "*"),
	}
}

// UseStubFetcher reports whether URL imports should use canned content.
func (c Config) UseStubFetcher() bool {
	return strings.EqualFold(c.ImportFetch, "stub")
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadEnvFile loads KEY=VALUE pairs from path without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		slog.Warn("could not load env file", "path", path, "error", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
