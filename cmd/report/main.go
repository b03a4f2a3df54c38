// Command report regenerates the report files from the current store
// without fetching anything.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"harvest/internal/aggregate"
	"harvest/internal/config"
	"harvest/internal/report"
	"harvest/internal/store"
	"harvest/pkg/database"
)

func main() {
	configPath := flag.String("config", "", "config file (default $HARVEST_CONFIG or harvest.yaml)")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath == "" {
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.Load(*configPath)
	}
	if err != nil {
		slog.Error("Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(cfg.Database())
	defer db.Close()

	st := store.New(db)
	if err := st.EnsureSchema(); err != nil {
		logger.Error("Failed to ensure schema", slog.String("error", err.Error()))
		_ = db.Close()
		os.Exit(1)
	}

	if err := report.New(aggregate.New(st), cfg.OutputPaths, logger).WriteAll(ctx); err != nil {
		logger.Error("Failed to write reports", slog.String("error", err.Error()))
		_ = db.Close()
		os.Exit(1)
	}
	logger.Info("Reports written", slog.String("dir", cfg.OutputPaths.Dir))
}
