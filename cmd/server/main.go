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

	"github.com/yangwenmai/blockpress/internal/api"
	"github.com/yangwenmai/blockpress/internal/compose"
	"github.com/yangwenmai/blockpress/internal/config"
	"github.com/yangwenmai/blockpress/internal/feed"
	"github.com/yangwenmai/blockpress/internal/seed"
	"github.com/yangwenmai/blockpress/internal/store"
	"github.com/yangwenmai/blockpress/internal/worker"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	// Open SQLite.
	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	s, err := store.New(db)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	templates, err := compose.BuiltinTemplates()
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	var fetcher compose.Fetcher
	if cfg.UseStubFetcher() {
		slog.Info("IMPORT_FETCH=stub, URL imports return canned content")
		fetcher = compose.StubFetcher{}
	} else {
		fetcher = compose.NewHTTPFetcher(cfg.ImportTimeout, int64(cfg.ImportMaxBytes))
	}

	articles := seed.Articles()
	slog.Info("seed corpus loaded", "articles", len(articles))

	feedSvc := feed.NewService(articles, s, s, feed.Options{
		Timeout:  cfg.FeedTimeout,
		CacheTTL: cfg.FeedCacheTTL,
	})
	dispatcher := compose.NewDispatcher(templates, fetcher, compose.WithIDChecker(s))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Keep the feed cache warm in the background.
	w := worker.New(feedSvc, s, cfg.RefreshInterval)
	go w.Start(ctx)

	srv := api.New(api.Deps{
		Feed:       feedSvc,
		Creator:    dispatcher,
		Store:      s,
		Templates:  templates,
		CORSOrigin: cfg.CORSOrigin,
	})
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		slog.Info("shutting down")
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		httpServer.Shutdown(shutdownCtx)
	}()

	slog.Info("blockpress server listening", "addr", "http://localhost:"+cfg.Port)
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
