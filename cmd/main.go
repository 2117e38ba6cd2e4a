// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-participation/internal/config"
	"github.com/Shivanand-hulikatti/event-participation/internal/database"
	"github.com/Shivanand-hulikatti/event-participation/internal/handler"
	"github.com/Shivanand-hulikatti/event-participation/internal/logging"
	"github.com/Shivanand-hulikatti/event-participation/internal/metrics"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
	"github.com/Shivanand-hulikatti/event-participation/internal/service"
	"github.com/Shivanand-hulikatti/event-participation/internal/stats"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	// ── 1. Connect to PostgreSQL ──────────────────────────────────────────
	pool, err := database.NewPool(ctx, cfg.DB, logger)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	logger.Info("connected to PostgreSQL", zap.String("host", cfg.DB.Host), zap.String("db", cfg.DB.Name))

	// ── 2. Wire up layers ────────────────────────────────────────────────
	var collector stats.Collector = stats.NewMemory(cfg.Stats.App)
	if cfg.Stats.URL != "" {
		collector = stats.NewClient(cfg.Stats.URL, cfg.Stats.App, cfg.Stats.Timeout)
		logger.Info("using stats service", zap.String("url", cfg.Stats.URL))
	}
	metrics.Register(prometheus.DefaultRegisterer)

	store := repository.NewStore(pool)
	opts := []service.Option{
		service.WithLogger(logger),
		service.WithMaxRetries(cfg.TxMaxRetries),
	}
	eventSvc := service.NewEventService(store, collector, opts...)
	requestSvc := service.NewRequestService(store, opts...)

	// ── 3. Build the router ───────────────────────────────────────────────
	router := handler.NewRouter(
		handler.NewEventHandler(eventSvc, logger),
		handler.NewRequestHandler(requestSvc, logger),
		logger,
	)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
