// Package commands implements CLI command handlers for commitflow.
package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/commitflow/internal/config"
	"github.com/Sumatoshi-tech/commitflow/internal/ingest"
	"github.com/Sumatoshi-tech/commitflow/internal/notify"
	"github.com/Sumatoshi-tech/commitflow/internal/server"
	"github.com/Sumatoshi-tech/commitflow/internal/stats"
	"github.com/Sumatoshi-tech/commitflow/internal/store"
	"github.com/Sumatoshi-tech/commitflow/pkg/observability"
	"github.com/Sumatoshi-tech/commitflow/pkg/version"
)

// NewServeCommand builds the long-running webhook server command.
func NewServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook ingestion server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path")

	return cmd
}

func runServe(parent context.Context, configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	providers, err := observability.Init(observability.Config{
		ServiceName:    "commitflow",
		ServiceVersion: version.Version,
		Environment:    cfg.Observability.Environment,
		Mode:           observability.ModeServe,
		OTLPEndpoint:   cfg.Observability.OTLPEndpoint,
		OTLPInsecure:   cfg.Observability.OTLPInsecure,
		SampleRatio:    cfg.Observability.SampleRatio,
		LogLevel:       observability.ParseLogLevel(cfg.Observability.LogLevel),
		LogJSON:        cfg.Observability.LogJSON,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = providers.Shutdown(shutdownCtx)
	}()

	logger := providers.Logger

	metrics, err := observability.NewIngestMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	emitter := notify.NewAsyncEmitter(
		&notify.LogSink{Logger: logger},
		cfg.Notify.BufferSize,
		logger,
		func() { metrics.RecordNotificationDropped(ctx) },
	)
	defer emitter.Close()

	fetcher := stats.NewHTTPFetcher(nil, cfg.Stats.Token)
	extractor := stats.NewExtractor(fetcher,
		time.Duration(cfg.Stats.TimeoutSeconds)*time.Second, logger)

	pipeline := ingest.NewPipeline(st, extractor, emitter, metrics,
		time.Duration(cfg.Cache.TTLSeconds)*time.Second, logger)

	srv := server.New(cfg.Server.Addr, cfg.Server.ShutdownSeconds, server.Deps{
		Pipeline:       pipeline,
		Store:          st,
		Metrics:        metrics,
		MetricsHandler: providers.MetricsHandler,
		Tracer:         providers.Tracer,
		Logger:         logger,
	})

	return srv.Run(ctx)
}
