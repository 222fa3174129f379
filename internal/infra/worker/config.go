package worker

import (
	"fmt"
	"time"

	"content-mesh/internal/pkg/config"
)

// Config holds the settings of the scheduled ingestion worker.
type Config struct {
	// CronSchedule is a 5-field cron expression ("minute hour day month weekday").
	// Default: "0 * * * *" (hourly)
	CronSchedule string

	// Timezone is the IANA name the schedule is evaluated in.
	// Default: "UTC"
	Timezone string

	// RunTimeout bounds one ingestion run, publication included.
	// Range: 1m-4h
	// Default: 30 minutes
	RunTimeout time.Duration

	// HealthPort serves /health, /health/ready, /metrics and /mesh.
	// Range: 1024-65535
	// Default: 9091
	HealthPort int

	// RunOnStart triggers one ingestion as soon as the worker starts.
	RunOnStart bool
}

// DefaultConfig returns the worker defaults.
func DefaultConfig() Config {
	return Config{
		CronSchedule: "0 * * * *",
		Timezone:     "UTC",
		RunTimeout:   30 * time.Minute,
		HealthPort:   9091,
		RunOnStart:   true,
	}
}

// Validate checks every field and reports all failures together.
func (c Config) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateDuration(c.RunTimeout, time.Minute, 4*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("run timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfig reads the worker settings from the environment. Invalid values
// fall back to their defaults and are reported through l.
//
// Environment variables:
//   - INGEST_CRON_SCHEDULE: cron expression (default: "0 * * * *")
//   - WORKER_TIMEZONE: IANA timezone name (default: "UTC")
//   - WORKER_RUN_TIMEOUT: duration between 1m and 4h (default: 30m)
//   - WORKER_HEALTH_PORT: integer 1024-65535 (default: 9091)
//   - WORKER_RUN_ON_START: boolean (default: true)
func LoadConfig(l *config.Loader) Config {
	cfg := DefaultConfig()

	cfg.CronSchedule = config.Collect(l, "cron_schedule",
		config.LoadEnvWithFallback("INGEST_CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule))
	cfg.Timezone = config.Collect(l, "timezone",
		config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone))
	cfg.RunTimeout = config.Collect(l, "run_timeout",
		config.LoadEnvDuration("WORKER_RUN_TIMEOUT", cfg.RunTimeout, func(d time.Duration) error {
			return config.ValidateDuration(d, time.Minute, 4*time.Hour)
		}))
	cfg.HealthPort = config.Collect(l, "health_port",
		config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
			return config.ValidateIntRange(v, 1024, 65535)
		}))
	cfg.RunOnStart = config.Collect(l, "run_on_start",
		config.LoadEnvBool("WORKER_RUN_ON_START", cfg.RunOnStart))

	return cfg
}

// Location returns the schedule's time zone, or UTC when Timezone is invalid.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
