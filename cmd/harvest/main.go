// Command harvest runs one ingestion pass over the configured sources and
// regenerates the reports. Re-running it resumes from what the store holds.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"harvest/internal/aggregate"
	"harvest/internal/config"
	"harvest/internal/ingest"
	"harvest/internal/report"
	"harvest/internal/source"
	"harvest/internal/store"
	"harvest/pkg/database"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file (default $HARVEST_CONFIG or harvest.yaml)")
		only       = flag.String("source", "all", "source to ingest: all|books|countries|movies")
		noReports  = flag.Bool("no-reports", false, "skip report generation")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	sources, err := selectSources(*only)
	if err != nil {
		logger.Error("Invalid -source", slog.String("error", err.Error()))
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := database.MustOpen(cfg.Database())
	defer db.Close()

	st := store.New(db)
	if err := st.EnsureSchema(); err != nil {
		logger.Error("Failed to ensure schema", slog.String("error", err.Error()))
		_ = db.Close()
		os.Exit(1)
	}

	if cfg.Movies.APIKey == "" {
		logger.Warn("OMDB_API_KEY not set, movie requests will likely be rejected")
	}

	in := ingest.New(st,
		source.NewOpenLibrary(cfg.Books, logger),
		source.NewRestCountries(cfg.Countries, logger),
		source.NewOMDb(cfg.Movies, logger),
		ingest.OptionsFrom(cfg),
		logger,
	)

	results, err := in.Run(ctx, sources...)
	if err != nil {
		logger.Error("Ingestion failed", slog.String("error", err.Error()))
		_ = db.Close()
		os.Exit(1)
	}

	added := 0
	for _, r := range results {
		added += r.Added()
	}

	agg := aggregate.New(st)
	counts, err := agg.Counts(ctx)
	if err != nil {
		logger.Error("Failed to count rows", slog.String("error", err.Error()))
		_ = db.Close()
		os.Exit(1)
	}
	logger.Info("Ingestion finished",
		slog.Int("cycles", len(results)),
		slog.Int("added", added),
		slog.Int("books", counts[store.KindBooks]),
		slog.Int("authors", counts[store.KindAuthors]),
		slog.Int("countries", counts[store.KindCountries]),
		slog.Int("languages", counts[store.KindLanguages]),
		slog.Int("movies", counts[store.KindMovies]),
	)

	if *noReports {
		return
	}
	if err := report.New(agg, cfg.OutputPaths, logger).WriteAll(ctx); err != nil {
		logger.Error("Failed to write reports", slog.String("error", err.Error()))
		_ = db.Close()
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

func selectSources(name string) ([]string, error) {
	if name == "all" {
		return ingest.Sources, nil
	}
	for _, s := range ingest.Sources {
		if s == name {
			return []string{s}, nil
		}
	}
	return nil, fmt.Errorf("unknown source %q", name)
}
