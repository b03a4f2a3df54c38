package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// lookup parses the variable named key. Unset, empty and unparseable
// values all fall back to def.
func lookup[T any](key string, def T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		slog.Warn("Ignoring malformed environment variable",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return def
	}
	return v
}

// GetEnvStr reads a string such as HARVEST_DB_PATH or OMDB_API_KEY.
func GetEnvStr(key, def string) string {
	return lookup(key, def, func(s string) (string, error) { return s, nil })
}

// GetEnvInt reads a count such as HARVEST_BOOKS_BATCH_SIZE.
func GetEnvInt(key string, def int) int {
	return lookup(key, def, func(s string) (int, error) { return strconv.Atoi(strings.TrimSpace(s)) })
}

// GetEnvDuration reads a Go duration ("10s", "1m30s") such as
// HARVEST_HTTP_TIMEOUT.
func GetEnvDuration(key string, def time.Duration) time.Duration {
	return lookup(key, def, func(s string) (time.Duration, error) { return time.ParseDuration(strings.TrimSpace(s)) })
}

// GetEnvLogLevel reads HARVEST_LOG_LEVEL style values: debug, info,
// warn/warning or error.
func GetEnvLogLevel(key string, def slog.Level) slog.Level {
	return lookup(key, def, func(s string) (slog.Level, error) {
		var lvl slog.Level
		err := lvl.UnmarshalText([]byte(normalizeLevel(s)))
		return lvl, err
	})
}

// parseLogLevel resolves the log_level setting from the config file.
func parseLogLevel(value string, def slog.Level) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(normalizeLevel(value))); err != nil {
		return def
	}
	return lvl
}

func normalizeLevel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		return "warn"
	}
	return s
}
