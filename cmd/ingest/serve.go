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

	"content-mesh/internal/infra/worker"
	"content-mesh/internal/observability/tracing"
	"content-mesh/internal/pkg/config"
	"content-mesh/internal/usecase/publish"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var (
		flags    ingestFlags
		out      string
		schedule string
		port     int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Ingest on a cron schedule and serve health, metrics and mesh stats",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkSnapshotPath(out); err != nil {
				return err
			}
			logger := newLogger()
			if err := loadEnvFile(cmd, logger); err != nil {
				return err
			}
			shutdown := tracing.InitProvider()
			defer func() { _ = shutdown(context.Background()) }()

			workerMetrics := worker.NewWorkerMetrics()
			l := config.NewLoader(workerMetrics.ConfigMetrics)
			s := loadSettings(cmd, l, &flags)
			workerCfg := worker.LoadConfig(l)
			logWarnings(logger, l.Finish())

			if cmd.Flags().Changed("schedule") {
				workerCfg.CronSchedule = schedule
			}
			if cmd.Flags().Changed("port") {
				workerCfg.HealthPort = port
			}
			if err := workerCfg.Validate(); err != nil {
				return fmt.Errorf("worker configuration: %w", err)
			}

			svc, err := newService(s, logger)
			if err != nil {
				return err
			}

			job := func(ctx context.Context) (*worker.Report, error) {
				var report *worker.Report
				err := publishToFile(out, func(b publish.NodeBuilder) error {
					var err error
					report, err = ingestAndPublish(ctx, svc, b, logger)
					return err
				})
				return report, err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := worker.NewServer(fmt.Sprintf(":%d", workerCfg.HealthPort), logger)
			runner := worker.NewRunner(workerCfg, job, server, workerMetrics, logger)

			logger.Info("worker configuration loaded",
				slog.String("cron_schedule", workerCfg.CronSchedule),
				slog.String("timezone", workerCfg.Timezone),
				slog.Duration("run_timeout", workerCfg.RunTimeout),
				slog.Int("health_port", workerCfg.HealthPort),
				slog.String("out", out))

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if err := server.Start(gctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				return runner.Start(gctx)
			})
			return g.Wait()
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "content-mesh.ndjson", "NDJSON snapshot file replaced after every run")
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron schedule (overrides INGEST_CRON_SCHEDULE)")
	cmd.Flags().IntVar(&port, "port", 0, "admin server port (overrides WORKER_HEALTH_PORT)")
	return cmd
}

// checkSnapshotPath rejects outputs serve cannot replace atomically.
func checkSnapshotPath(out string) error {
	if out == "" || out == "-" {
		return fmt.Errorf("serve writes a snapshot file: --out must name a file, got %q", out)
	}
	return nil
}
