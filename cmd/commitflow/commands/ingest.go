package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/commitflow/internal/config"
	"github.com/Sumatoshi-tech/commitflow/internal/ingest"
	"github.com/Sumatoshi-tech/commitflow/internal/stats"
	"github.com/Sumatoshi-tech/commitflow/internal/store"
	"github.com/Sumatoshi-tech/commitflow/pkg/observability"
)

// IngestCommand holds flags for the direct ingestion command.
type IngestCommand struct {
	configPath string
	filePath   string
	projectKey string
}

// NewIngestCommand builds the one-shot payload ingestion command. It runs the
// same pipeline as the server but reads the payload from a local file and
// skips the signature check.
func NewIngestCommand() *cobra.Command {
	ic := &IngestCommand{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Process a payload file directly",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ic.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&ic.configPath, "config", "c", "", "config file path")
	cmd.Flags().StringVarP(&ic.filePath, "file", "f", "", "payload JSON file (required)")
	cmd.Flags().StringVarP(&ic.projectKey, "project", "p", "", "target project key (required)")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func (ic *IngestCommand) run(ctx context.Context) error {
	cfg, err := config.LoadConfig(ic.configPath)
	if err != nil {
		return err
	}

	body, err := os.ReadFile(ic.filePath)
	if err != nil {
		return fmt.Errorf("read payload file: %w", err)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	logger := cliLogger(cfg)

	fetcher := stats.NewHTTPFetcher(nil, cfg.Stats.Token)
	extractor := stats.NewExtractor(fetcher,
		time.Duration(cfg.Stats.TimeoutSeconds)*time.Second, logger)

	pipeline := ingest.NewPipeline(st, extractor, nil, nil,
		time.Duration(cfg.Cache.TTLSeconds)*time.Second, logger)

	summary, err := pipeline.ProcessLocal(ctx, ic.projectKey, body)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(summary)
}

// cliLogger writes human-readable logs to stderr so stdout stays parseable.
func cliLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: observability.ParseLogLevel(cfg.Observability.LogLevel),
	}))
}
