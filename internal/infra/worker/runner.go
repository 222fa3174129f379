package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"content-mesh/internal/observability/logging"

	"github.com/robfig/cron/v3"
)

// ErrRunInProgress is returned by RunOnce while another run is active.
var ErrRunInProgress = errors.New("ingestion run already in progress")

// Job performs one ingestion run. The returned report may be nil; Runner
// fills in status, timing and error.
type Job func(ctx context.Context) (*Report, error)

// Runner executes a Job on the configured schedule. Runs never overlap: a
// tick that fires while a run is active is skipped.
type Runner struct {
	cfg     Config
	job     Job
	server  *Server
	metrics *WorkerMetrics
	logger  *slog.Logger
	running atomic.Bool
}

// NewRunner creates a runner. server may be nil.
func NewRunner(cfg Config, job Job, server *Server, metrics *WorkerMetrics, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:     cfg,
		job:     job,
		server:  server,
		metrics: metrics,
		logger:  logging.OrDefault(logger),
	}
}

// RunOnce runs the job with the configured timeout and publishes its report.
func (r *Runner) RunOnce(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		r.metrics.RecordJobRun(StatusSkipped)
		r.logger.Warn("ingestion run skipped", slog.String("reason", "previous run still active"))
		return ErrRunInProgress
	}
	defer r.running.Store(false)

	start := time.Now()
	r.logger.Info("ingestion run started")

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.RunTimeout)
	defer cancel()

	report, err := r.job(runCtx)
	if report == nil {
		report = &Report{}
	}
	report.StartedAt = start
	report.FinishedAt = time.Now()
	duration := report.FinishedAt.Sub(start)
	r.metrics.RecordJobDuration(duration)

	if err != nil {
		report.Status = StatusFailure
		report.Error = SanitizeError(err)
		r.metrics.RecordJobRun(StatusFailure)
		r.publish(report)
		r.logger.Error("ingestion run failed",
			slog.String("run_id", report.RunID),
			slog.Duration("duration", duration),
			slog.String("error", report.Error))
		return err
	}

	report.Status = StatusSuccess
	r.metrics.RecordJobRun(StatusSuccess)
	r.metrics.RecordNodesPublished(report.Nodes)
	r.metrics.RecordLastSuccess()
	r.publish(report)
	r.logger.Info("ingestion run completed",
		slog.String("run_id", report.RunID),
		slog.Int("nodes", report.Nodes),
		slog.Duration("duration", duration))
	return nil
}

func (r *Runner) publish(report *Report) {
	if r.server != nil {
		r.server.SetReport(report)
	}
}

// Start schedules the job and blocks until ctx is cancelled. It waits for the
// active run to finish before returning.
func (r *Runner) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(r.cfg.Location()))
	if _, err := c.AddFunc(r.cfg.CronSchedule, func() {
		_ = r.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("add cron job: %w", err)
	}
	c.Start()

	var wg sync.WaitGroup
	if r.cfg.RunOnStart {
		wg.Go(func() {
			_ = r.RunOnce(ctx)
		})
	}

	if r.server != nil {
		r.server.SetReady(true)
	}
	r.logger.Info("worker started",
		slog.String("schedule", r.cfg.CronSchedule),
		slog.String("timezone", r.cfg.Timezone))

	<-ctx.Done()

	if r.server != nil {
		r.server.SetReady(false)
	}
	<-c.Stop().Done()
	wg.Wait()
	r.logger.Info("worker stopped")
	return nil
}
