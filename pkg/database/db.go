package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Config locates the SQLite file that holds every ingested entity and,
// through the row counts, the resume state of every source.
type Config struct {
	Path string
}

func DefaultConfig() Config {
	// env override for containers and CI
	if p := os.Getenv("HARVEST_DB_PATH"); p != "" {
		return Config{Path: p}
	}

	// local default: ~/.harvest/data.db
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return Config{
		Path: filepath.Join(home, ".harvest", "data.db"),
	}
}

func EnsureDataDir(cfg Config) error {
	return os.MkdirAll(filepath.Dir(cfg.Path), 0o755)
}

// Open returns a handle limited to a single connection. Pragmas are passed
// through the DSN so every connection the pool (re)opens carries them.
func Open(cfg Config) (*sql.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("open sqlite: empty path")
	}
	if err := EnsureDataDir(cfg); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

func MustOpen(cfg Config) *sql.DB {
	db, err := Open(cfg)
	if err != nil {
		slog.Error("failed to open db", slog.String("path", cfg.Path), slog.String("error", err.Error()))
		os.Exit(1)
	}
	return db
}

// dsn builds a SQLite URI. The path is escaped so '?', '#' and '%' in a
// file name stay part of it.
func dsn(path string) string {
	q := url.Values{}
	q.Set("_foreign_keys", "on")
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", "5000")
	return "file:" + (&url.URL{Path: path}).EscapedPath() + "?" + q.Encode()
}
