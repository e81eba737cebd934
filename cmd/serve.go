package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"waste_service/internal/api"
	"waste_service/internal/infrastructure/logging"
)

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}, os.Stdout)
	logger.Info("starting waste_service")

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	a, err := newApp(startCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	handler := api.NewHandler(a.predictions, a.dashboard, logger,
		api.WithRequiredFiles(a.requiredFiles),
		api.WithFrontendDir(cfg.FrontendDir),
		api.WithMetrics(a.metrics.Handler()),
	)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.NewRouter(handler, logger),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", slog.String("address", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	case err := <-errCh:
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	logger.Info("waste_service stopped")
	return nil
}
