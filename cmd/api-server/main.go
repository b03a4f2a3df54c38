package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"harvest/internal/api"
	"harvest/internal/config"
	"harvest/internal/store"
	"harvest/pkg/database"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file (default $HARVEST_CONFIG or harvest.yaml)")
		addr       = flag.String("addr", "", "listen address (overrides api.addr)")
	)
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
	if *addr != "" {
		cfg.API.Addr = *addr
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	db := database.MustOpen(cfg.Database())
	defer db.Close()

	st := store.New(db)
	if err := st.EnsureSchema(); err != nil {
		logger.Error("Failed to ensure schema", slog.String("error", err.Error()))
		_ = db.Close()
		os.Exit(1)
	}

	router := gin.New()
	router.Use(gin.Recovery(), api.RateLimit(cfg.API.RequestsPerSecond, logger))

	// only the local reverse proxy is trusted
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	api.NewHandler(st, cfg.StoreLocation).RegisterRoutes(router)

	httpSrv := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Report API listening", slog.String("addr", cfg.API.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("Server error", slog.String("error", err.Error()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("Server stopped")
}
