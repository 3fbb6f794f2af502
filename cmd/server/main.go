package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgallion1/corpusgest/internal/api"
	"github.com/dgallion1/corpusgest/internal/config"
	"github.com/dgallion1/corpusgest/internal/metrics"
	"github.com/dgallion1/corpusgest/internal/pipeline"
	"github.com/dgallion1/corpusgest/internal/sink"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))

	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	store, err := sink.Open(ctx, cfg.SinkOptions(), log)
	if err != nil {
		log.Error("open sink", "error", err)
		os.Exit(1)
	}

	orch := pipeline.NewOrchestrator(cfg, store, m, log)
	orch.Start(ctx)

	var search api.Searcher
	if cfg.SearchIndex != "" {
		search = store
	}
	srv := api.NewServer(orch, search, m, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		if err := store.Close(); err != nil {
			log.Warn("close sink", "error", err)
		}
	}()

	log.Info("starting corpusgest", "port", cfg.Port, "workers", cfg.WorkerCount)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
