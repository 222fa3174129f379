// Package config loads component configuration from environment variables.
//
// Loading is fail-open: a value that does not parse or validate is replaced
// by its default and reported as a warning, never as an error. Components
// collect the warnings through a Loader and surface them in logs and
// ConfigMetrics.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of loading one configuration value.
//
// Warning is empty unless FallbackApplied is true, in which case Value holds
// the default.
type Result[T any] struct {
	Value           T
	Warning         string
	FallbackApplied bool
}

// LoadEnvString returns the variable, or defaultValue when it is unset.
// No validation is performed.
func LoadEnvString(envKey, defaultValue string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	return defaultValue
}

// LoadEnvWithFallback loads a string and validates it.
//
// Warning format:
//
//	"Invalid {envKey}='{value}': {error}, falling back to default '{default}'"
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) Result[string] {
	return load(envKey, defaultValue, func(s string) (string, error) { return s, nil }, validator)
}

// LoadEnvInt loads an integer and validates it.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) Result[int] {
	return load(envKey, defaultValue, func(s string) (int, error) {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, fmt.Errorf("invalid integer format")
		}
		return v, nil
	}, validator)
}

// LoadEnvDuration loads a Go duration string ("30s", "1h30m") and validates it.
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) Result[time.Duration] {
	return load(envKey, defaultValue, time.ParseDuration, validator)
}

// LoadEnvBool loads a boolean.
// Accepted: 1, t, T, true, TRUE, True and 0, f, F, false, FALSE, False.
func LoadEnvBool(envKey string, defaultValue bool) Result[bool] {
	return load(envKey, defaultValue, func(s string) (bool, error) {
		switch s {
		case "1", "t", "T", "true", "TRUE", "True":
			return true, nil
		case "0", "f", "F", "false", "FALSE", "False":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean format, expected 'true' or 'false'")
		}
	}, nil)
}

// LoadEnvList loads a comma separated list, trimming blanks and empty items.
func LoadEnvList(envKey string, defaultValue []string) Result[[]string] {
	return load(envKey, defaultValue, func(s string) ([]string, error) {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	}, nil)
}

func load[T any](envKey string, defaultValue T, parse func(string) (T, error), validator func(T) error) Result[T] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return Result[T]{Value: defaultValue}
	}

	value, err := parse(raw)
	if err == nil && validator != nil {
		err = validator(value)
	}
	if err != nil {
		return Result[T]{
			Value: defaultValue,
			Warning: fmt.Sprintf("Invalid %s='%s': %v, falling back to default '%v'",
				envKey, raw, err, defaultValue),
			FallbackApplied: true,
		}
	}
	return Result[T]{Value: value}
}

// Loader collects the warnings of several loads for one component.
//
//	l := config.NewLoader(metrics)
//	schedule := config.Collect(l, "cron_schedule", config.LoadEnvWithFallback("INGEST_CRON_SCHEDULE", "0 * * * *", config.ValidateCronSchedule))
//	warnings := l.Finish()
type Loader struct {
	metrics  *ConfigMetrics
	warnings []string
}

// NewLoader creates a Loader. metrics may be nil.
func NewLoader(metrics *ConfigMetrics) *Loader {
	return &Loader{metrics: metrics}
}

// Collect records r under field and returns its value.
func Collect[T any](l *Loader, field string, r Result[T]) T {
	if r.FallbackApplied {
		l.warnings = append(l.warnings, r.Warning)
		if l.metrics != nil {
			l.metrics.RecordValidationError(field)
			l.metrics.RecordFallback(field, "default")
		}
	}
	return r.Value
}

// Warn records a warning that did not come from a single variable.
func (l *Loader) Warn(field, warning string) {
	l.warnings = append(l.warnings, warning)
	if l.metrics != nil {
		l.metrics.RecordValidationError(field)
	}
}

// Finish updates the load metrics and returns the collected warnings.
func (l *Loader) Finish() []string {
	if l.metrics != nil {
		l.metrics.RecordLoadTimestamp()
		l.metrics.SetFallbackActive(len(l.warnings) > 0)
	}
	return l.warnings
}
