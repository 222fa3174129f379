package metrics

import (
	"strconv"
	"time"
)

// RecordPageFetched records one merged page of a paged fetch.
// This metric helps track upstream latency and volume per collection.
func RecordPageFetched(fetch string, duration time.Duration, items int) {
	PagesFetchedTotal.WithLabelValues(fetch).Inc()
	PageDuration.WithLabelValues(fetch).Observe(duration.Seconds())
	if items > 0 {
		ItemsFetchedTotal.WithLabelValues(fetch).Add(float64(items))
	}
}

// RecordFetchCompleted records a paged fetch reaching a terminal state.
// Outcome should be one of "success", "early_stop" or "failure".
func RecordFetchCompleted(outcome string) {
	FetchesCompletedTotal.WithLabelValues(outcome).Inc()
}

// RecordFetchError records a paged fetch failure by kind.
// Kind should be one of "timeout", "malformed", "upstream" or "transport".
func RecordFetchError(kind string) {
	FetchErrorsTotal.WithLabelValues(kind).Inc()
}

// SetSchedulerActive updates the number of in-flight fetches.
func SetSchedulerActive(active int) {
	SchedulerActiveFetches.Set(float64(active))
}

// RecordSchedulerWave records one scheduler dispatch wave.
func RecordSchedulerWave() {
	SchedulerWavesTotal.Inc()
}

// MeshSnapshot is the set of mesh gauges updated after a build.
type MeshSnapshot struct {
	Collections   int
	Junctions     int
	Nodes         int
	SimpleEdges   int
	JunctionEdges int
	FileEdges     int
}

// RecordMeshBuilt updates the mesh gauges and the build duration histogram.
// Gauges always describe the most recent mesh.
func RecordMeshBuilt(s MeshSnapshot, duration time.Duration) {
	MeshCollections.WithLabelValues("content").Set(float64(s.Collections - s.Junctions))
	MeshCollections.WithLabelValues("junction").Set(float64(s.Junctions))
	MeshNodes.Set(float64(s.Nodes))
	MeshEdges.WithLabelValues("simple").Set(float64(s.SimpleEdges))
	MeshEdges.WithLabelValues("junction").Set(float64(s.JunctionEdges))
	MeshEdges.WithLabelValues("file").Set(float64(s.FileEdges))
	MeshBuildDuration.Observe(duration.Seconds())
}

// RecordIngestRun records the outcome and duration of an ingestion run.
func RecordIngestRun(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	IngestRunsTotal.WithLabelValues(status).Inc()
	IngestDuration.Observe(duration.Seconds())
}

// RecordCollectionRecordFailure records a collection whose records could not
// be fetched and were replaced by an empty set.
func RecordCollectionRecordFailure(collection string) {
	CollectionRecordFailuresTotal.WithLabelValues(collection).Inc()
}

// RecordAPIRequest records one content API HTTP call.
// A zero code means no response was received.
func RecordAPIRequest(endpoint string, code int, duration time.Duration) {
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	APIRequestsTotal.WithLabelValues(endpoint, label).Inc()
	APIRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordTokenRefresh records a login or refresh grant.
func RecordTokenRefresh(grant string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	APITokenRefreshesTotal.WithLabelValues(grant, status).Inc()
}
