package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"content-mesh/internal/observability/metrics"
	"content-mesh/internal/observability/tracing"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// SchedulerConfig bounds how the Scheduler dispatches fetches.
type SchedulerConfig struct {
	MaxConcurrentRequests int           // Active fetch limit (0 = unbounded)
	Throttle              time.Duration // Delay between dispatch waves
}

// FlushReport summarises one Flush.
type FlushReport struct {
	Succeeded  []Task
	Failed     []Task
	Pages      int // Advance calls made
	PeakActive int
	Duration   time.Duration
}

// Scheduler drives many tasks concurrently, one page per dispatch.
//
// A task that settles without reaching a terminal state goes to the back of the
// waiting queue, so long fetches share slots fairly with short ones. A failed
// task is set aside without retry and without affecting its siblings.
type Scheduler struct {
	cfg    SchedulerConfig
	logger *slog.Logger

	mu      sync.Mutex
	pending []Task
	held    map[Task]struct{} // Enqueued and not yet terminal
}

// NewScheduler creates a Scheduler. A nil logger uses slog.Default().
func NewScheduler(cfg SchedulerConfig, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxConcurrentRequests < 0 {
		cfg.MaxConcurrentRequests = 0
	}
	if cfg.Throttle < 0 {
		cfg.Throttle = 0
	}
	return &Scheduler{cfg: cfg, logger: logger, held: make(map[Task]struct{})}
}

// Enqueue adds a task to the waiting queue. Terminal tasks and tasks the
// scheduler already holds are rejected.
// Enqueue is safe to call while Flush runs; the task joins the next wave.
func (s *Scheduler) Enqueue(t Task) error {
	if t == nil {
		return fmt.Errorf("enqueue: nil task")
	}
	if t.State().Terminal() {
		return fmt.Errorf("enqueue %q: %w", t.Name(), ErrTaskTerminal)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.held[t]; ok {
		return fmt.Errorf("enqueue %q: %w", t.Name(), ErrTaskQueued)
	}
	s.held[t] = struct{}{}
	s.pending = append(s.pending, t)
	return nil
}

// release forgets a task that reached a terminal state.
func (s *Scheduler) release(t Task) {
	s.mu.Lock()
	delete(s.held, t)
	s.mu.Unlock()
}

// Pending returns the number of tasks waiting for the next Flush.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Scheduler) takePending() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}

// requeue puts tasks a cancelled Flush did not finish back in front of the queue.
func (s *Scheduler) requeue(tasks []Task) {
	if len(tasks) == 0 {
		return
	}
	s.mu.Lock()
	s.pending = append(append([]Task{}, tasks...), s.pending...)
	s.mu.Unlock()
}

func (s *Scheduler) hasSlot(active int) bool {
	return s.cfg.MaxConcurrentRequests == 0 || active < s.cfg.MaxConcurrentRequests
}

type settled struct {
	task Task
	err  error
}

// Flush runs until neither the waiting nor the active set holds a task.
//
// On context cancellation Flush stops dispatching, waits for in-flight pages
// to settle, returns unfinished tasks to the queue and reports ctx.Err().
// The waiting and active sets are owned by the Flush goroutine alone.
func (s *Scheduler) Flush(ctx context.Context) (*FlushReport, error) {
	ctx, span := tracing.StartSpan(ctx, "fetch.flush",
		attribute.Int("scheduler.max_concurrent", s.cfg.MaxConcurrentRequests),
		attribute.Int64("scheduler.throttle_ms", s.cfg.Throttle.Milliseconds()),
	)
	start := time.Now()
	report := &FlushReport{}

	var (
		g        errgroup.Group
		waiting  []Task
		active   int
		waves    int
		stopErr  error
		finished = make(chan settled)
	)

	for {
		waiting = append(waiting, s.takePending()...)
		if stopErr == nil {
			stopErr = ctx.Err()
		}

		if stopErr == nil && len(waiting) > 0 && s.hasSlot(active) {
			if waves > 0 && s.cfg.Throttle > 0 {
				if err := sleep(ctx, s.cfg.Throttle); err != nil {
					stopErr = err
					continue
				}
			}
			waves++
			metrics.RecordSchedulerWave()

			for len(waiting) > 0 && s.hasSlot(active) {
				t := waiting[0]
				waiting = waiting[1:]
				active++
				g.Go(func() error {
					err := t.Advance(ctx)
					finished <- settled{task: t, err: err}
					return nil
				})
			}
			if active > report.PeakActive {
				report.PeakActive = active
			}
			metrics.SetSchedulerActive(active)
		}

		if active == 0 {
			if stopErr != nil || len(waiting) == 0 {
				break
			}
			continue
		}

		r := <-finished
		active--
		report.Pages++
		metrics.SetSchedulerActive(active)

		switch r.task.State() {
		case StateSucceeded:
			s.release(r.task)
			report.Succeeded = append(report.Succeeded, r.task)
		case StateFailed:
			s.release(r.task)
			report.Failed = append(report.Failed, r.task)
			s.logger.Warn("fetch failed",
				slog.String("fetch", r.task.Name()),
				slog.Any("error", r.task.Err()))
		default:
			waiting = append(waiting, r.task)
		}
	}
	_ = g.Wait()

	s.requeue(waiting)
	report.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("scheduler.succeeded", len(report.Succeeded)),
		attribute.Int("scheduler.failed", len(report.Failed)),
		attribute.Int("scheduler.pages", report.Pages),
		attribute.Int("scheduler.waves", waves),
	)
	tracing.EndSpan(span, stopErr)

	s.logger.Info("fetch flush completed",
		slog.Int("succeeded", len(report.Succeeded)),
		slog.Int("failed", len(report.Failed)),
		slog.Int("pages", report.Pages),
		slog.Int("waves", waves),
		slog.Int("peak_active", report.PeakActive),
		slog.Int("unfinished", len(waiting)),
		slog.Duration("duration", report.Duration))

	if stopErr != nil {
		return report, stopErr
	}
	return report, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
