package ingest

import (
	"fmt"
	"maps"
	"os"
	"time"

	"content-mesh/internal/common/pagination"
	"content-mesh/internal/pkg/config"
	"content-mesh/internal/usecase/fetch"

	"gopkg.in/yaml.v3"
)

// DefaultFileCollection is the collection holding file records.
const DefaultFileCollection = "directus_files"

// Config controls an ingestion run.
type Config struct {
	Scheduler      fetch.SchedulerConfig
	RequestTimeout time.Duration // Per page request (0 = none)
	Pagination     pagination.Config
	Filter         Filter

	// FileCollection is fetched alongside content unless blocked. Empty disables files.
	FileCollection string

	// FailOnRecordError aborts the run when any collection's records cannot
	// be fetched. Otherwise the collection contributes no records.
	FailOnRecordError bool

	// IncludeJunctions publishes junction collections as nodes.
	IncludeJunctions bool
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Scheduler: fetch.SchedulerConfig{
			MaxConcurrentRequests: 4,
			Throttle:              0,
		},
		RequestTimeout: 60 * time.Second,
		Pagination:     pagination.DefaultConfig(),
		FileCollection: DefaultFileCollection,
	}
}

// LoadConfig reads the ingestion configuration from the environment and,
// when INGEST_CONFIG_FILE is set, applies the overrides file on top.
// Invalid values fall back to defaults and are recorded on l.
func LoadConfig(l *config.Loader) Config {
	d := DefaultConfig()

	cfg := Config{
		Scheduler: fetch.SchedulerConfig{
			MaxConcurrentRequests: config.Collect(l, "max_concurrent_requests",
				config.LoadEnvInt("INGEST_MAX_CONCURRENT_REQUESTS", d.Scheduler.MaxConcurrentRequests, config.ValidateNonNegativeInt)),
			Throttle: config.Collect(l, "throttle",
				config.LoadEnvDuration("INGEST_THROTTLE", d.Scheduler.Throttle, config.ValidateNonNegativeDuration)),
		},
		RequestTimeout: config.Collect(l, "request_timeout",
			config.LoadEnvDuration("INGEST_REQUEST_TIMEOUT", d.RequestTimeout, config.ValidateNonNegativeDuration)),
		Pagination: pagination.Config{
			DefaultLimit: config.Collect(l, "page_size",
				config.LoadEnvInt("INGEST_PAGE_SIZE", d.Pagination.DefaultLimit, func(v int) error { return config.ValidateIntRange(v, 1, 10000) })),
			MaxLimit: config.Collect(l, "page_size_max",
				config.LoadEnvInt("INGEST_PAGE_SIZE_MAX", d.Pagination.MaxLimit, func(v int) error { return config.ValidateIntRange(v, 1, 10000) })),
			MaxResults: config.Collect(l, "max_results",
				config.LoadEnvInt("INGEST_MAX_RESULTS", d.Pagination.MaxResults, config.ValidateNonNegativeInt)),
		},
		Filter: Filter{
			Allow: config.Collect(l, "allow_collections", config.LoadEnvList("INGEST_ALLOW_COLLECTIONS", nil)),
			Block: config.Collect(l, "block_collections", config.LoadEnvList("INGEST_BLOCK_COLLECTIONS", nil)),
		},
		FileCollection:    config.LoadEnvString("INGEST_FILE_COLLECTION", d.FileCollection),
		FailOnRecordError: config.Collect(l, "fail_on_record_error", config.LoadEnvBool("INGEST_FAIL_ON_RECORD_ERROR", d.FailOnRecordError)),
		IncludeJunctions:  config.Collect(l, "include_junctions", config.LoadEnvBool("INGEST_INCLUDE_JUNCTIONS", d.IncludeJunctions)),
	}

	if path := os.Getenv("INGEST_CONFIG_FILE"); path != "" {
		o, err := LoadOverrides(path)
		if err != nil {
			l.Warn("config_file", fmt.Sprintf("Ignoring INGEST_CONFIG_FILE='%s': %v", path, err))
			return cfg
		}
		cfg = cfg.WithOverrides(o)
	}
	return cfg
}

// Overrides is the optional YAML file layered over the environment.
//
//	ingest:
//	  allow: [posts, authors]
//	  block: [drafts]
//	  file_collection: directus_files
//	  fail_on_record_error: true
//	  include_junctions: false
//	  collections:
//	    posts:
//	      page_size: 50
//	      max_results: 500
type Overrides struct {
	Ingest struct {
		Filter            `yaml:",inline"`
		FileCollection    *string                      `yaml:"file_collection"`
		FailOnRecordError *bool                        `yaml:"fail_on_record_error"`
		IncludeJunctions  *bool                        `yaml:"include_junctions"`
		Collections       map[string]pagination.Limits `yaml:"collections"`
	} `yaml:"ingest"`
}

// LoadOverrides reads and validates an overrides file.
// The path comes from the operator's environment.
func LoadOverrides(path string) (*Overrides, error) {
	// #nosec G304 -- path is provided by trusted source (operator env), not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := o.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &o, nil
}

func (o *Overrides) validate() error {
	for name, limits := range o.Ingest.Collections {
		if limits.PageSize < 0 {
			return fmt.Errorf("collections.%s.page_size must not be negative", name)
		}
		if limits.MaxResults < 0 {
			return fmt.Errorf("collections.%s.max_results must not be negative", name)
		}
	}
	return nil
}

// WithOverrides returns c with every value set in o applied.
func (c Config) WithOverrides(o *Overrides) Config {
	in := o.Ingest
	if len(in.Allow) > 0 {
		c.Filter.Allow = in.Allow
	}
	if len(in.Block) > 0 {
		c.Filter.Block = in.Block
	}
	if in.FileCollection != nil {
		c.FileCollection = *in.FileCollection
	}
	if in.FailOnRecordError != nil {
		c.FailOnRecordError = *in.FailOnRecordError
	}
	if in.IncludeJunctions != nil {
		c.IncludeJunctions = *in.IncludeJunctions
	}
	if len(in.Collections) > 0 {
		merged := maps.Clone(c.Pagination.Overrides)
		if merged == nil {
			merged = make(map[string]pagination.Limits, len(in.Collections))
		}
		maps.Copy(merged, in.Collections)
		c.Pagination.Overrides = merged
	}
	return c
}
