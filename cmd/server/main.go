package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prefectlog/internal/app/server/api"
	"prefectlog/internal/app/server/config"
	"prefectlog/internal/infrastructure/storage"
	"prefectlog/internal/infrastructure/storage/postgres"
	"prefectlog/internal/infrastructure/storage/sqlite"
	"prefectlog/internal/utils/logger"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)

	log.Info("starting server",
		"env", cfg.Env,
		"address", cfg.RunAddress,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store storage.Store
		err   error
	)
	if cfg.DatabaseURI != "" {
		store, err = postgres.New(ctx, cfg.DatabaseURI, log)
	} else {
		store, err = sqlite.New(cfg.SQLitePath, log)
	}
	if err != nil {
		log.Error("failed to open record store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	mux := api.New(store, log)

	srv := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	log.Info("server stopped")
}
