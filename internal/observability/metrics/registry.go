// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch metrics track paged requests against the content API
var (
	// PagesFetchedTotal counts merged pages by fetch name
	PagesFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_pages_fetched_total",
			Help: "Total number of pages merged into paged fetches",
		},
		[]string{"fetch"},
	)

	// ItemsFetchedTotal counts items merged by fetch name
	ItemsFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_items_fetched_total",
			Help: "Total number of items merged into paged fetches",
		},
		[]string{"fetch"},
	)

	// PageDuration measures a single page round-trip in seconds
	PageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "content_page_duration_seconds",
			Help:    "Duration of a single page request in seconds",
			Buckets: []float64{0.05, 0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8},
		},
		[]string{"fetch"},
	)

	// FetchesCompletedTotal counts terminal fetches by outcome
	FetchesCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_fetches_completed_total",
			Help: "Total number of paged fetches that reached a terminal state",
		},
		[]string{"outcome"}, // outcome: success, early_stop, failure
	)

	// FetchErrorsTotal counts fetch failures by error kind
	FetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_fetch_errors_total",
			Help: "Total number of paged fetch failures",
		},
		[]string{"kind"}, // kind: timeout, malformed, upstream, transport
	)
)

// Scheduler metrics track the bounded-concurrency fetch queue
var (
	// SchedulerActiveFetches tracks fetches with an in-flight page request
	SchedulerActiveFetches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "content_scheduler_active_fetches",
			Help: "Number of fetches with an in-flight page request",
		},
	)

	// SchedulerWavesTotal counts dispatch waves
	SchedulerWavesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "content_scheduler_waves_total",
			Help: "Total number of scheduler dispatch waves",
		},
	)
)

// Mesh metrics describe the most recently built content mesh
var (
	// MeshCollections tracks the number of collections in the latest mesh
	MeshCollections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "content_mesh_collections",
			Help: "Number of collections in the latest content mesh",
		},
		[]string{"type"}, // type: content, junction
	)

	// MeshNodes tracks the number of nodes in the latest mesh
	MeshNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "content_mesh_nodes",
			Help: "Number of nodes in the latest content mesh",
		},
	)

	// MeshEdges tracks the number of resolved node relations in the latest mesh
	MeshEdges = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "content_mesh_edges",
			Help: "Number of resolved node relations in the latest content mesh",
		},
		[]string{"kind"}, // kind: simple, junction, file
	)

	// MeshBuildDuration measures mesh construction time
	MeshBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "content_mesh_build_duration_seconds",
			Help:    "Time taken to build the content mesh",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
	)
)

// Ingestion metrics track whole ingestion runs
var (
	// IngestRunsTotal counts ingestion runs by status
	IngestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_ingest_runs_total",
			Help: "Total number of ingestion runs",
		},
		[]string{"status"}, // status: success, failure
	)

	// IngestDuration measures end-to-end ingestion time
	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "content_ingest_duration_seconds",
			Help:    "Time taken by a full ingestion run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	// CollectionRecordFailuresTotal counts collections whose records could not be fetched
	CollectionRecordFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_collection_record_failures_total",
			Help: "Total number of collection record fetches that failed",
		},
		[]string{"collection"},
	)
)

// Content API metrics track raw HTTP calls made by the API client
var (
	// APIRequestsTotal counts content API calls by endpoint and status code
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_api_requests_total",
			Help: "Total number of content API HTTP requests",
		},
		[]string{"endpoint", "code"}, // code: HTTP status, or "error" when no response arrived
	)

	// APIRequestDuration measures a content API round-trip in seconds
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "content_api_request_duration_seconds",
			Help:    "Duration of content API HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// APITokenRefreshesTotal counts access token logins and refreshes
	APITokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_api_token_refreshes_total",
			Help: "Total number of content API logins and token refreshes",
		},
		[]string{"grant", "status"}, // grant: login, refresh
	)
)
