package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"content-mesh/internal/common/pagination"
	"content-mesh/internal/domain/entity"
	"content-mesh/internal/domain/mesh"
	"content-mesh/internal/observability/logging"
	"content-mesh/internal/observability/metrics"
	"content-mesh/internal/usecase/fetch"
)

// API is the content API an ingestion reads from.
type API interface {
	Collections(ctx context.Context, params pagination.Params) (pagination.Response[entity.Collection], error)
	Fields(ctx context.Context, params pagination.Params) (pagination.Response[entity.Field], error)
	Relations(ctx context.Context, params pagination.Params) (pagination.Response[entity.RawRelation], error)
	Files(ctx context.Context, params pagination.Params) (pagination.Response[mesh.Record], error)
	Items(ctx context.Context, collection string, params pagination.Params) (pagination.Response[mesh.Record], error)
	Singleton(ctx context.Context, collection string, params pagination.Params) (pagination.Response[mesh.Record], error)
}

// Service orchestrates ingestion runs.
type Service struct {
	api    API
	cfg    Config
	logger *slog.Logger
}

// NewService creates a Service. A nil logger falls back to slog.Default().
func NewService(api API, cfg Config, logger *slog.Logger) *Service {
	return &Service{api: api, cfg: cfg, logger: logging.OrDefault(logger)}
}

// Config returns the configuration the service runs with.
func (s *Service) Config() Config { return s.cfg }

// RunStats contains statistics about an ingestion run.
type RunStats struct {
	Collections        int           `json:"collections"`
	SkippedCollections []string      `json:"skipped_collections,omitempty"`
	FailedCollections  []string      `json:"failed_collections,omitempty"`
	EmptyCollections   []string      `json:"empty_collections,omitempty"`
	Records            int           `json:"records"`
	Files              int           `json:"files"`
	Pages              int           `json:"pages"`
	Duration           time.Duration `json:"duration"`
}

// Result is the outcome of a successful run.
type Result struct {
	RunID string
	Mesh  *mesh.Mesh
	Stats RunStats
}

// collectionFetch pairs a collection with its records fetch.
type collectionFetch struct {
	info  entity.Collection
	pk    string
	limit int
	fetch *fetch.PagedFetch[mesh.Record]
}

// Run performs one ingestion in three phases: schema, records, mesh.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	runID := logging.NewRunID()
	ctx = logging.WithLogger(ctx, s.logger)
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.FromContext(ctx)

	res, err := s.run(ctx, logger)
	duration := time.Since(start)
	metrics.RecordIngestRun(err == nil, duration)
	if err != nil {
		logger.Error("ingestion failed",
			slog.Duration("duration", duration),
			slog.Any("error", err))
		return nil, err
	}

	res.RunID = runID
	res.Stats.Duration = duration
	st := res.Mesh.Stats()
	logger.Info("ingestion completed",
		slog.Int("collections", res.Stats.Collections),
		slog.Int("records", res.Stats.Records),
		slog.Int("files", res.Stats.Files),
		slog.Int("pages", res.Stats.Pages),
		slog.Int("nodes", st.Nodes),
		slog.Int("edges", st.Edges),
		slog.Int("failed_collections", len(res.Stats.FailedCollections)),
		slog.Duration("duration", duration))
	return res, nil
}

func (s *Service) run(ctx context.Context, logger *slog.Logger) (*Result, error) {
	stats := RunStats{}

	// Phase 1: schema
	schema, pages, err := s.fetchSchema(ctx, logger)
	stats.Pages += pages
	if err != nil {
		return nil, err
	}

	fileCollection := s.fileCollection()
	sel := selectCollections(schema.collections, s.cfg.Filter, fileCollection)
	stats.SkippedCollections = sel.skipped
	keys := entity.PrimaryKeys(schema.fields)
	relations := entity.BuildRelations(schema.relations, fileCollection)

	logger.Info("schema discovered",
		slog.Int("collections", len(schema.collections)),
		slog.Int("selected", len(sel.content)),
		slog.Int("fields", len(schema.fields)),
		slog.Int("relations", len(relations)),
		slog.String("file_collection", fileCollection))

	// Phase 2: records
	sched := fetch.NewScheduler(s.cfg.Scheduler, logger)
	fetches := make([]collectionFetch, 0, len(sel.content))
	for _, c := range sel.content {
		cf := s.recordsFetch(c, entity.PrimaryKeyOf(keys, c.Name), logger)
		fetches = append(fetches, cf)
		if err := sched.Enqueue(cf.fetch); err != nil {
			return nil, err
		}
	}

	var files *collectionFetch
	if fileCollection != "" {
		cf := s.filesFetch(fileInfo(schema.collections, fileCollection), entity.PrimaryKeyOf(keys, fileCollection), logger)
		files = &cf
		if err := sched.Enqueue(cf.fetch); err != nil {
			return nil, err
		}
	}

	report, err := sched.Flush(ctx)
	stats.Pages += report.Pages
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}

	input := mesh.Input{Relations: relations, FileCollection: fileCollection}
	for _, cf := range fetches {
		records, err := s.collectRecords(cf, logger)
		if err != nil {
			return nil, err
		}
		switch {
		case cf.fetch.State() == fetch.StateFailed:
			stats.FailedCollections = append(stats.FailedCollections, cf.info.Name)
		case len(records) == 0:
			stats.EmptyCollections = append(stats.EmptyCollections, cf.info.Name)
		}
		stats.Records += len(records)
		input.Collections = append(input.Collections, mesh.CollectionData{
			Info:       cf.info,
			PrimaryKey: cf.pk,
			Records:    records,
		})
	}

	if files != nil {
		if err := files.fetch.Err(); err != nil {
			return nil, &RequiredFetchError{Fetch: files.fetch.Name(), Err: err}
		}
		records := trim(files.fetch.Results(), files.limit)
		stats.Files = len(records)
		input.Collections = append(input.Collections, mesh.CollectionData{
			Info:       files.info,
			PrimaryKey: files.pk,
			Records:    records,
		})
	}
	stats.Collections = len(fetches)

	// Phase 3: mesh
	m, err := mesh.New(input, mesh.WithLogger(logger), mesh.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("build mesh: %w", err)
	}
	return &Result{Mesh: m, Stats: stats}, nil
}

type schemaData struct {
	collections []entity.Collection
	fields      []entity.Field
	relations   []entity.RawRelation
}

// fetchSchema drains the three schema fetches. Any failure aborts the run.
func (s *Service) fetchSchema(ctx context.Context, logger *slog.Logger) (schemaData, int, error) {
	opts := []fetch.Option{fetch.WithTimeout(s.cfg.RequestTimeout), fetch.WithLogger(logger)}
	collections := fetch.NewPagedFetch[entity.Collection]("schema/collections", s.api.Collections, opts...)
	fields := fetch.NewPagedFetch[entity.Field]("schema/fields", s.api.Fields, opts...)
	relations := fetch.NewPagedFetch[entity.RawRelation]("schema/relations", s.api.Relations, opts...)

	sched := fetch.NewScheduler(s.cfg.Scheduler, logger)
	for _, t := range []fetch.Task{collections, fields, relations} {
		if err := sched.Enqueue(t); err != nil {
			return schemaData{}, 0, err
		}
	}
	report, err := sched.Flush(ctx)
	if err != nil {
		return schemaData{}, report.Pages, fmt.Errorf("fetch schema: %w", err)
	}
	if len(report.Failed) > 0 {
		t := report.Failed[0]
		return schemaData{}, report.Pages, &RequiredFetchError{Fetch: t.Name(), Err: t.Err()}
	}

	return schemaData{
		collections: collections.Results(),
		fields:      fields.Results(),
		relations:   relations.Results(),
	}, report.Pages, nil
}

// fileCollection returns the configured file collection unless it is blocked.
func (s *Service) fileCollection() string {
	if s.cfg.FileCollection == "" || slices.Contains(s.cfg.Filter.Block, s.cfg.FileCollection) {
		return ""
	}
	return s.cfg.FileCollection
}

func (s *Service) recordsFetch(c entity.Collection, pk string, logger *slog.Logger) collectionFetch {
	limits := s.cfg.Pagination.For(c.Name)
	opts := s.fetchOptions(limits, logger)

	var f *fetch.PagedFetch[mesh.Record]
	name := "items/" + c.Name
	if c.Singleton {
		opts = append(opts, fetch.WithReplace())
		f = fetch.NewPagedFetch[mesh.Record](name, func(ctx context.Context, p pagination.Params) (pagination.Response[mesh.Record], error) {
			return s.api.Singleton(ctx, c.Name, p)
		}, opts...)
	} else {
		f = fetch.NewPagedFetch[mesh.Record](name, func(ctx context.Context, p pagination.Params) (pagination.Response[mesh.Record], error) {
			return s.api.Items(ctx, c.Name, p)
		}, opts...)
	}
	return collectionFetch{info: c, pk: pk, limit: limits.MaxResults, fetch: f}
}

func (s *Service) filesFetch(c entity.Collection, pk string, logger *slog.Logger) collectionFetch {
	limits := s.cfg.Pagination.For(c.Name)
	f := fetch.NewPagedFetch[mesh.Record]("files/"+c.Name, s.api.Files, s.fetchOptions(limits, logger)...)
	return collectionFetch{info: c, pk: pk, limit: limits.MaxResults, fetch: f}
}

func (s *Service) fetchOptions(limits pagination.Limits, logger *slog.Logger) []fetch.Option {
	opts := []fetch.Option{
		fetch.WithPageSize(limits.PageSize),
		fetch.WithTimeout(s.cfg.RequestTimeout),
		fetch.WithLogger(logger),
	}
	if limits.MaxResults > 0 {
		limit := limits.MaxResults
		opts = append(opts, fetch.WithBeforeNextPage(func(info pagination.PageInfo) bool {
			return info.CurrentOffset < limit
		}))
	}
	return opts
}

// collectRecords applies the record failure policy to a drained fetch.
func (s *Service) collectRecords(cf collectionFetch, logger *slog.Logger) ([]mesh.Record, error) {
	if err := cf.fetch.Err(); err != nil {
		if s.cfg.FailOnRecordError {
			return nil, fmt.Errorf("%w: %s: %w", ErrRecordFetchFailed, cf.info.Name, err)
		}
		metrics.RecordCollectionRecordFailure(cf.info.Name)
		logger.Warn("collection records unavailable, continuing without them",
			slog.String("collection", cf.info.Name),
			slog.String("reason", "fetch_failed"),
			slog.Any("error", err))
		return nil, nil
	}

	records := trim(cf.fetch.Results(), cf.limit)
	if len(records) == 0 {
		logger.Info("collection has no records",
			slog.String("collection", cf.info.Name),
			slog.String("reason", "empty"))
	}
	return records, nil
}

func trim(records []mesh.Record, limit int) []mesh.Record {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}
