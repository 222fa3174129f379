package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"content-mesh/internal/infra/worker"
	"content-mesh/internal/observability/tracing"
	"content-mesh/internal/pkg/config"
	"content-mesh/internal/usecase/publish"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var (
		flags ingestFlags
		out   string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest once and write the mesh nodes as NDJSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()
			if err := loadEnvFile(cmd, logger); err != nil {
				return err
			}
			shutdown := tracing.InitProvider()
			defer func() { _ = shutdown(context.Background()) }()

			l := config.NewLoader(config.NewConfigMetrics("ingest"))
			s := loadSettings(cmd, l, &flags)
			logWarnings(logger, l.Finish())

			svc, err := newService(s, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var report *worker.Report
			publishFn := func(b publish.NodeBuilder) error {
				var err error
				report, err = ingestAndPublish(ctx, svc, b, logger)
				return err
			}

			if out == "" || out == "-" {
				err = publishTo(cmd.OutOrStdout(), publishFn)
			} else {
				err = publishToFile(out, publishFn)
			}
			if err != nil {
				return err
			}

			logger.Info("content mesh written",
				slog.String("run_id", report.RunID),
				slog.Int("nodes", report.Nodes),
				slog.String("out", out))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "-", "NDJSON output file, - for stdout")
	return cmd
}
