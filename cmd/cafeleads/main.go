package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/matchaops/cafeleads/internal/api"
	"github.com/matchaops/cafeleads/internal/clock/system"
	"github.com/matchaops/cafeleads/internal/config"
	"github.com/matchaops/cafeleads/internal/dedupe"
	"github.com/matchaops/cafeleads/internal/enrich"
	"github.com/matchaops/cafeleads/internal/export"
	"github.com/matchaops/cafeleads/internal/export/sheets"
	"github.com/matchaops/cafeleads/internal/id/uuid"
	"github.com/matchaops/cafeleads/internal/leads"
	"github.com/matchaops/cafeleads/internal/logging"
	"github.com/matchaops/cafeleads/internal/metrics"
	"github.com/matchaops/cafeleads/internal/normalize"
	"github.com/matchaops/cafeleads/internal/progress"
	"github.com/matchaops/cafeleads/internal/progress/sinks"
	"github.com/matchaops/cafeleads/internal/provider"
	"github.com/matchaops/cafeleads/internal/provider/apify"
	"github.com/matchaops/cafeleads/internal/provider/googlemaps"
	"github.com/matchaops/cafeleads/internal/search"
	"github.com/matchaops/cafeleads/internal/staging"
	"github.com/matchaops/cafeleads/internal/storage/memory"
	"github.com/matchaops/cafeleads/internal/storage/postgres"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("service exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	clk := system.New()
	ids := uuid.New()

	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("progress sink: %w", err)
	}
	hub := progress.NewHub(progress.Config{Logger: logger}, sinks.NewLogSink(logger), promSink)

	leadStore, attemptStore, closeStores, err := buildStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	exporter, err := buildExporter(ctx, cfg, logger)
	if err != nil {
		return err
	}

	providers := map[leads.Source]provider.Client{
		leads.SourceGoogleMaps: googlemaps.New(googlemaps.Config{
			APIKey:       cfg.GoogleMaps.APIKey,
			Endpoint:     cfg.GoogleMaps.Endpoint,
			MaxQueryLen:  cfg.GoogleMaps.MaxQueryLen,
			Timeout:      time.Duration(cfg.GoogleMaps.TimeoutSeconds) * time.Second,
			FetchDetails: cfg.GoogleMaps.FetchDetails,
		}, logger),
		leads.SourceTikTok: apify.New(apify.Config{
			Token:        cfg.Apify.Token,
			Endpoint:     cfg.Apify.Endpoint,
			ActorID:      cfg.Apify.ActorTikTok,
			Source:       leads.SourceTikTok,
			ResultsLimit: cfg.Apify.ResultsLimit,
			MaxQueryLen:  cfg.Apify.MaxQueryLen,
			PollInterval: cfg.Apify.PollInterval(),
			WaitBudget:   cfg.Apify.WaitBudget(),
			Timeout:      time.Duration(cfg.Apify.TimeoutSeconds) * time.Second,
		}, logger, hub),
		leads.SourceInstagram: apify.New(apify.Config{
			Token:        cfg.Apify.Token,
			Endpoint:     cfg.Apify.Endpoint,
			ActorID:      cfg.Apify.ActorInstagram,
			Source:       leads.SourceInstagram,
			ResultsLimit: cfg.Apify.ResultsLimit,
			MaxQueryLen:  cfg.Apify.MaxQueryLen,
			PollInterval: cfg.Apify.PollInterval(),
			WaitBudget:   cfg.Apify.WaitBudget(),
			Timeout:      time.Duration(cfg.Apify.TimeoutSeconds) * time.Second,
		}, logger, hub),
	}

	svc := search.New(search.Deps{
		Providers:  providers,
		Normalizer: normalize.New(logger),
		Enricher: enrich.New(enrich.Config{
			Enabled:   cfg.Enrichment.Enabled,
			UserAgent: cfg.Enrichment.UserAgent,
			Timeout:   time.Duration(cfg.Enrichment.TimeoutSeconds) * time.Second,
		}, logger),
		Deduper: dedupe.New(leadStore, logger),
		Staging: staging.New(clk, staging.Options{
			TTL:        time.Duration(cfg.Staging.TTLMinutes) * time.Minute,
			MaxEntries: cfg.Staging.MaxEntries,
		}, logger),
		LeadStore: leadStore,
		Attempts:  attemptStore,
		Exporter:  export.NewTrigger(exporter, clk, cfg.Export.TabPrefix, logger),
		Emitter:   hub,
		Clock:     clk,
		IDs:       ids,
		Logger:    logger,
	})

	server := api.NewServer(svc, cfg, logger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := hub.Close(shutdownCtx); err != nil {
		logger.Warn("progress hub close", zap.Error(err))
	}
	return nil
}

// buildStores picks Postgres when a DSN is configured and falls back to the
// in-memory stores otherwise. The memory stores lose data on restart and are
// meant for local development only.
func buildStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (leads.LeadStore, leads.AttemptStore, func(), error) {
	if cfg.DB.DSN == "" {
		logger.Warn("no database configured, using in-memory stores")
		return memory.NewLeadStore(), memory.NewAttemptStore(), func() {}, nil
	}

	leadStore, err := postgres.NewLeadStore(ctx, postgres.LeadStoreConfig{
		DSN:      cfg.DB.DSN,
		Table:    cfg.DB.LeadsTable,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("lead store: %w", err)
	}
	attemptStore, err := postgres.NewAttemptStore(ctx, postgres.AttemptStoreConfig{
		DSN:      cfg.DB.DSN,
		Table:    cfg.DB.AttemptsTable,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		leadStore.Close()
		return nil, nil, nil, fmt.Errorf("attempt store: %w", err)
	}

	closeAll := func() {
		attemptStore.Close()
		leadStore.Close()
	}
	return leadStore, attemptStore, closeAll, nil
}

// buildExporter returns nil when exporting is disabled; the export trigger
// treats a nil exporter as a no-op.
func buildExporter(ctx context.Context, cfg config.Config, logger *zap.Logger) (leads.Exporter, error) {
	if !cfg.Export.Enabled {
		logger.Info("spreadsheet export disabled")
		return nil, nil
	}
	exporter, err := sheets.New(ctx, cfg.Export.SpreadsheetID, cfg.Export.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("sheets exporter: %w", err)
	}
	return exporter, nil
}
