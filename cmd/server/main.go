package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/badgebind/internal/api"
	"github.com/dgallion1/badgebind/internal/binder"
	"github.com/dgallion1/badgebind/internal/collect"
	"github.com/dgallion1/badgebind/internal/config"
	"github.com/dgallion1/badgebind/internal/pipeline"
	"github.com/dgallion1/badgebind/internal/snapshot"
	"github.com/dgallion1/badgebind/internal/source"
	"github.com/dgallion1/badgebind/internal/stats"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Data source and binder.
	src, err := source.New(cfg.DataSource, cfg.DataBase,
		source.WithClient(&http.Client{Timeout: 15 * time.Second}),
		source.WithUserAgent("badgebind-server/1.0"),
	)
	if err != nil {
		log.Error("invalid data source", "error", err)
		os.Exit(1)
	}
	bindStats := stats.NewWindow(time.Hour)
	b := binder.New(src, cfg.BindAttr, log, bindStats)

	// Snapshot pipeline.
	renderer := snapshot.NewRenderer(snapshot.Config{
		RemoteURL: cfg.ChromeURL,
		Width:     cfg.SnapshotWidth,
		Height:    cfg.SnapshotHeight,
		Logger:    log,
	})
	orch := pipeline.NewOrchestrator(cfg, b, renderer, log)
	orch.Start(ctx)

	// Profile collector, only when a user is configured.
	var (
		coll  *collect.Collector
		store *collect.Store
	)
	if err := cfg.ValidateCollector(); err == nil {
		store, err = collect.OpenStore(cfg.StorePath)
		if err != nil {
			log.Error("open response store", "path", cfg.StorePath, "error", err)
			os.Exit(1)
		}
		coll = collect.NewCollector(collect.NewClient(cfg.HTBAppToken), store, cfg.HTBAPIURL, collect.DefaultRules(cfg.HTBBaseURL), log)
	} else {
		log.Info("collector disabled", "reason", err.Error())
	}

	// Initialize HTTP server.
	srv := api.NewServer(b, src, orch, coll, bindStats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Info("starting badgebind", "port", cfg.Port, "template", cfg.TemplatePath, "data", src.Location())
	err = serve(httpServer, sigCh, log, func() {
		orch.Stop()
		renderer.Close()
		if store != nil {
			store.Close()
		}
	})
	if err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// serve runs srv until a signal arrives on sig, then shuts it down and runs
// cleanup. It returns only after cleanup has finished.
func serve(srv *http.Server, sig <-chan os.Signal, log *slog.Logger, cleanup func()) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-sig
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}
		cleanup()
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	<-done
	return nil
}
