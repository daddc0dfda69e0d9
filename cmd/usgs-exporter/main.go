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

	"github.com/ikluhsman/usgs-water-data-metrics/internal/config"
	"github.com/ikluhsman/usgs-water-data-metrics/internal/exposition"
	"github.com/ikluhsman/usgs-water-data-metrics/internal/scrape"
	"github.com/ikluhsman/usgs-water-data-metrics/internal/usgs"
)

const shutdownTimeout = 5 * time.Second

func main() {
	gaugesPath := flag.String("gauges", "/config/usgs_gauges.yaml", "path to the gauge list YAML file")
	listen := flag.String("listen", ":8000", "address to serve /metrics on")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	slog.Info("usgs-exporter starting",
		"gauges_file", *gaugesPath,
		"listen", *listen,
		"max_workers", cfg.MaxWorkers,
		"primary_key_set", cfg.APIKeyPrimary != "",
		"backup_key_set", cfg.APIKeyBackup != "",
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := usgs.NewClient(cfg.APIURL)
	credentials := usgs.CredentialSet(cfg.APIKeyPrimary, cfg.APIKeyBackup)
	orchestrator := scrape.New(client, credentials, cfg.MaxWorkers)
	handler := exposition.New(orchestrator, *gaugesPath)

	// Revalidate gauge-list edits as they land and surface the verdict on
	// /healthz. Scrapes always re-read the file themselves.
	if watcher, err := config.NewGaugeWatcher(*gaugesPath); err != nil {
		slog.Warn("gauge list watcher unavailable", "path", *gaugesPath, "err", err)
	} else {
		go watcher.Run(ctx, func(_ []config.GaugeDescriptor, err error) {
			handler.SetGaugeListOK(err == nil)
		})
	}

	srv := &http.Server{
		Addr:    *listen,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("serving metrics", "addr", *listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server failed", "err", err)
		os.Exit(1)
	}
	slog.Info("usgs-exporter shutting down")
}
