package config

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvString(t *testing.T) {
	t.Setenv("TEST_CONFIG_STRING", "value")
	assert.Equal(t, "value", LoadEnvString("TEST_CONFIG_STRING", "default"))

	t.Setenv("TEST_CONFIG_STRING", "")
	assert.Equal(t, "default", LoadEnvString("TEST_CONFIG_STRING", "default"))
}

func TestLoadEnvWithFallback(t *testing.T) {
	tests := []struct {
		name         string
		env          string
		validator    func(string) error
		wantValue    string
		wantFallback bool
	}{
		{"unset uses default", "", ValidateCronSchedule, "0 * * * *", false},
		{"valid value", "30 5 * * *", ValidateCronSchedule, "30 5 * * *", false},
		{"invalid value falls back", "not a cron", ValidateCronSchedule, "0 * * * *", true},
		{"no validator accepts anything", "anything", nil, "anything", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_CONFIG_CRON", tt.env)

			r := LoadEnvWithFallback("TEST_CONFIG_CRON", "0 * * * *", tt.validator)

			assert.Equal(t, tt.wantValue, r.Value)
			assert.Equal(t, tt.wantFallback, r.FallbackApplied)
			if tt.wantFallback {
				assert.Contains(t, r.Warning, "Invalid TEST_CONFIG_CRON='not a cron'")
				assert.Contains(t, r.Warning, "falling back to default '0 * * * *'")
			} else {
				assert.Empty(t, r.Warning)
			}
		})
	}
}

func TestLoadEnvInt(t *testing.T) {
	inRange := func(v int) error { return ValidateIntRange(v, 1, 50) }

	tests := []struct {
		name         string
		env          string
		validator    func(int) error
		wantValue    int
		wantFallback bool
	}{
		{"unset", "", inRange, 5, false},
		{"valid", "10", inRange, 10, false},
		{"surrounding spaces", " 12 ", inRange, 12, false},
		{"zero without validator", "0", nil, 0, false},
		{"below range", "0", inRange, 5, true},
		{"above range", "51", inRange, 5, true},
		{"decimal", "1.5", inRange, 5, true},
		{"not a number", "many", nil, 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_CONFIG_INT", tt.env)

			r := LoadEnvInt("TEST_CONFIG_INT", 5, tt.validator)

			assert.Equal(t, tt.wantValue, r.Value)
			assert.Equal(t, tt.wantFallback, r.FallbackApplied)
		})
	}
}

func TestLoadEnvDuration(t *testing.T) {
	tests := []struct {
		name         string
		env          string
		validator    func(time.Duration) error
		wantValue    time.Duration
		wantFallback bool
	}{
		{"unset", "", ValidatePositiveDuration, 30 * time.Second, false},
		{"valid", "1m30s", ValidatePositiveDuration, 90 * time.Second, false},
		{"zero allowed when non-negative", "0s", ValidateNonNegativeDuration, 0, false},
		{"zero rejected when positive", "0s", ValidatePositiveDuration, 30 * time.Second, true},
		{"negative", "-5s", ValidatePositiveDuration, 30 * time.Second, true},
		{"missing unit", "30", nil, 30 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_CONFIG_DURATION", tt.env)

			r := LoadEnvDuration("TEST_CONFIG_DURATION", 30*time.Second, tt.validator)

			assert.Equal(t, tt.wantValue, r.Value)
			assert.Equal(t, tt.wantFallback, r.FallbackApplied)
		})
	}
}

func TestLoadEnvBool(t *testing.T) {
	for _, v := range []string{"1", "t", "T", "true", "TRUE", "True"} {
		t.Setenv("TEST_CONFIG_BOOL", v)
		r := LoadEnvBool("TEST_CONFIG_BOOL", false)
		assert.True(t, r.Value, v)
		assert.False(t, r.FallbackApplied, v)
	}
	for _, v := range []string{"0", "f", "F", "false", "FALSE", "False"} {
		t.Setenv("TEST_CONFIG_BOOL", v)
		r := LoadEnvBool("TEST_CONFIG_BOOL", true)
		assert.False(t, r.Value, v)
		assert.False(t, r.FallbackApplied, v)
	}

	t.Setenv("TEST_CONFIG_BOOL", "yes")
	r := LoadEnvBool("TEST_CONFIG_BOOL", true)
	assert.True(t, r.Value)
	assert.True(t, r.FallbackApplied)
	assert.Contains(t, r.Warning, "invalid boolean format")
}

func TestLoadEnvList(t *testing.T) {
	t.Setenv("TEST_CONFIG_LIST", " posts, ,authors,tags ,")
	r := LoadEnvList("TEST_CONFIG_LIST", nil)
	assert.Equal(t, []string{"posts", "authors", "tags"}, r.Value)

	t.Setenv("TEST_CONFIG_LIST", "")
	r = LoadEnvList("TEST_CONFIG_LIST", []string{"fallback"})
	assert.Equal(t, []string{"fallback"}, r.Value)
}

func TestLoader_CollectsFallbacks(t *testing.T) {
	m := NewConfigMetrics("test_loader_collect")
	t.Setenv("TEST_LOADER_CRON", "bogus")
	t.Setenv("TEST_LOADER_TIMEOUT", "10s")
	t.Setenv("TEST_LOADER_LIMIT", "-3")

	l := NewLoader(m)
	schedule := Collect(l, "cron_schedule", LoadEnvWithFallback("TEST_LOADER_CRON", "0 * * * *", ValidateCronSchedule))
	timeout := Collect(l, "timeout", LoadEnvDuration("TEST_LOADER_TIMEOUT", time.Minute, ValidatePositiveDuration))
	limit := Collect(l, "limit", LoadEnvInt("TEST_LOADER_LIMIT", 0, ValidateNonNegativeInt))
	l.Warn("overrides", "override file unreadable")
	warnings := l.Finish()

	assert.Equal(t, "0 * * * *", schedule)
	assert.Equal(t, 10*time.Second, timeout)
	assert.Equal(t, 0, limit)
	require.Len(t, warnings, 3)
	assert.Contains(t, warnings[0], "TEST_LOADER_CRON")
	assert.Contains(t, warnings[1], "TEST_LOADER_LIMIT")
	assert.Equal(t, "override file unreadable", warnings[2])

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ValidationErrorsTotal.WithLabelValues("cron_schedule")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("limit", "default")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ValidationErrorsTotal.WithLabelValues("overrides")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ValidationErrorsTotal.WithLabelValues("timeout")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FallbackActive))
	assert.Greater(t, testutil.ToFloat64(m.LoadTimestamp), float64(0))
}

func TestLoader_NilMetrics(t *testing.T) {
	t.Setenv("TEST_LOADER_NIL", "nope")

	l := NewLoader(nil)
	v := Collect(l, "flag", LoadEnvBool("TEST_LOADER_NIL", true))

	assert.True(t, v)
	assert.Len(t, l.Finish(), 1)
}
