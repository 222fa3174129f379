package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"content-mesh/internal/domain/mesh"
	"content-mesh/internal/infra/directus"
	"content-mesh/internal/infra/worker"
	"content-mesh/internal/observability/logging"
	"content-mesh/internal/pkg/config"
	"content-mesh/internal/usecase/ingest"
	"content-mesh/internal/usecase/publish"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// ingestFlags override the ingestion settings read from the environment.
type ingestFlags struct {
	allow             []string
	block             []string
	includeJunctions  bool
	failOnRecordError bool
}

func (f *ingestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.allow, "allow", nil, "collections to ingest (default: all)")
	cmd.Flags().StringSliceVar(&f.block, "block", nil, "collections to skip")
	cmd.Flags().BoolVar(&f.includeJunctions, "include-junctions", false, "publish junction collections as nodes")
	cmd.Flags().BoolVar(&f.failOnRecordError, "fail-on-record-error", false, "abort when a collection's records cannot be fetched")
}

// apply copies the flags that were set on cmd into cfg.
func (f *ingestFlags) apply(cmd *cobra.Command, cfg ingest.Config) ingest.Config {
	if cmd.Flags().Changed("allow") {
		cfg.Filter.Allow = f.allow
	}
	if cmd.Flags().Changed("block") {
		cfg.Filter.Block = f.block
	}
	if cmd.Flags().Changed("include-junctions") {
		cfg.IncludeJunctions = f.includeJunctions
	}
	if cmd.Flags().Changed("fail-on-record-error") {
		cfg.FailOnRecordError = f.failOnRecordError
	}
	return cfg
}

// loadEnvFile loads the dotenv file. A missing default file is not an error.
func loadEnvFile(cmd *cobra.Command, logger *slog.Logger) error {
	err := godotenv.Load(global.envFile)
	if err == nil {
		logger.Debug("environment file loaded", slog.String("path", global.envFile))
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("env-file") {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", global.envFile, err)
}

// newLogger builds the process logger on stderr so stdout stays free for output.
func newLogger() *slog.Logger {
	logger := logging.New(global.logFormat, os.Stderr)
	slog.SetDefault(logger)
	return logger
}

// settings is the configuration of one process.
type settings struct {
	api    directus.Config
	ingest ingest.Config
}

// loadSettings reads the API and ingestion configuration through l.
func loadSettings(cmd *cobra.Command, l *config.Loader, f *ingestFlags) settings {
	if global.configFile != "" {
		// LoadConfig reads the overrides path from the environment.
		_ = os.Setenv("INGEST_CONFIG_FILE", global.configFile)
	}
	return settings{
		api:    directus.LoadConfig(l),
		ingest: f.apply(cmd, ingest.LoadConfig(l)),
	}
}

func logWarnings(logger *slog.Logger, warnings []string) {
	for _, w := range warnings {
		logger.Warn("Configuration fallback applied", slog.String("warning", w))
	}
}

// newService validates s and wires the API client into an ingestion service.
func newService(s settings, logger *slog.Logger) (*ingest.Service, error) {
	if err := s.api.Validate(); err != nil {
		return nil, fmt.Errorf("content api configuration: %w", err)
	}
	client, err := directus.NewClient(s.api, directus.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create content api client: %w", err)
	}
	logger.Info("ingestion configured",
		slog.String("api_url", s.api.BaseURL),
		slog.Int("max_concurrent_requests", s.ingest.Scheduler.MaxConcurrentRequests),
		slog.Int("page_size", s.ingest.Pagination.DefaultLimit),
		slog.Any("allow", s.ingest.Filter.Allow),
		slog.Any("block", s.ingest.Filter.Block),
		slog.String("file_collection", s.ingest.FileCollection))
	return ingest.NewService(client, s.ingest, logger), nil
}

// runDetails is the report body served on /mesh.
type runDetails struct {
	Ingest  ingest.RunStats `json:"ingest"`
	Mesh    mesh.Stats      `json:"mesh"`
	Publish publish.Stats   `json:"publish"`
}

// ingestAndPublish runs one ingestion and hands the mesh to b.
func ingestAndPublish(ctx context.Context, svc *ingest.Service, b publish.NodeBuilder, logger *slog.Logger) (*worker.Report, error) {
	res, err := svc.Run(ctx)
	if err != nil {
		return nil, err
	}
	report := &worker.Report{RunID: res.RunID}

	stats, err := publish.Publish(ctx, res.Mesh, b, publish.Options{
		IncludeJunctions: svc.Config().IncludeJunctions,
		Logger:           logger.With(slog.String("run_id", res.RunID)),
	})
	report.Nodes = stats.Nodes
	report.Details = runDetails{Ingest: res.Stats, Mesh: res.Mesh.Stats(), Publish: stats}
	if err != nil {
		return report, fmt.Errorf("publish: %w", err)
	}
	return report, nil
}

// publishToFile writes the nodes to path through a temporary file renamed
// into place on success, so readers never see a partial snapshot.
func publishToFile(path string, publishFn func(b publish.NodeBuilder) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = publishTo(tmp, publishFn); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// publishTo buffers the NDJSON output written to w.
func publishTo(w io.Writer, publishFn func(b publish.NodeBuilder) error) error {
	bw := bufio.NewWriter(w)
	if err := publishFn(publish.NewNDJSONBuilder(bw)); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
