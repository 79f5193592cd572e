package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/noahxzhu/chatcard/internal/config"
	"github.com/noahxzhu/chatcard/internal/metrics"
	"github.com/noahxzhu/chatcard/internal/sender"
	"github.com/noahxzhu/chatcard/internal/storage"
	"github.com/noahxzhu/chatcard/internal/web"
	"github.com/noahxzhu/chatcard/internal/webhook"
)

func main() {
	// Setup structured logger (JSON handler)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load Config
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Init Storage. Unreadable data starts empty rather than stopping the UI.
	kv, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
	var corrupt *storage.CorruptError
	switch {
	case errors.As(err, &corrupt):
		slog.Warn("Storage unreadable, starting empty", "error", err)
	case err != nil:
		slog.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	store := storage.NewStore(kv, logger)
	store.Load()
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("Failed to close storage", "error", err)
		}
	}()

	// Init Sender
	m := metrics.New()
	snd := sender.New(webhook.NewClient(cfg.Webhook.Timeout), store, m, logger)

	// Init Web Server
	srv := web.NewServer(store, snd, m, logger, web.Options{
		DefaultWebhook: cfg.Webhook.DefaultURL,
		ClearAfterSend: cfg.UI.ClearAfterSend,
		GoogleClientID: cfg.UI.GoogleClientID,
	})
	httpServer := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start HTTP Server
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", cfg.Server.Port, "url", "http://localhost"+cfg.Server.Port,
			"storage", cfg.Storage.Backend, "webhook_timeout", cfg.Webhook.Timeout)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		slog.Error("HTTP server error", "error", err)
	}

	slog.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	slog.Info("Server exited")
}
