package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	eventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repindexor_events_processed_total",
			Help: "Total number of events folded into the entity store, by kind",
		},
		[]string{"kind"},
	)

	eventsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repindexor_events_skipped_total",
			Help: "Total number of events skipped, by reason (replayed, unknown_address, malformed)",
		},
		[]string{"reason"},
	)

	eventsMalformed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "repindexor_events_malformed_total",
			Help: "Total number of malformed events encountered",
		},
	)

	commitRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "repindexor_commit_retries_total",
			Help: "Total number of per-event commit retries after persistence failures",
		},
	)

	LastIngestedBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "repindexor_last_ingested_block",
			Help: "The block number of the last durably committed event",
		},
	)

	eventProcessingTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repindexor_event_processing_duration_seconds",
			Help:    "Time taken to fold and commit one event",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// Entity metrics
	ownersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "repindexor_owners_created_total",
			Help: "Total number of owner records created",
		},
	)

	agentsClassified = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "repindexor_agents_classified_total",
			Help: "Total number of owners upgraded from HUMAN to AGENT",
		},
	)

	snapshotsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "repindexor_score_snapshots_total",
			Help: "Total number of score snapshots appended",
		},
	)

	scoresComputed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "repindexor_score_distribution",
			Help:    "Distribution of recomputed reputation scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	// Feed metrics
	feedChunksFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "repindexor_feed_chunks_fetched_total",
			Help: "Total number of log chunks fetched from the RPC endpoint",
		},
	)

	feedLogsDecoded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "repindexor_feed_logs_decoded_total",
			Help: "Total number of raw logs decoded into typed events",
		},
	)

	FeedHeadBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "repindexor_feed_head_block",
			Help: "The highest finalized block number observed by the feed",
		},
	)

	// System metrics
	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "repindexor_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)

	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repindexor_errors_total",
			Help: "Total number of errors by component and severity",
		},
		[]string{"component", "severity"},
	)

	ComponentHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "repindexor_component_health",
			Help: "Component health status (1=healthy, 0=unhealthy)",
		},
		[]string{"component"},
	)

	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "repindexor_goroutines",
			Help: "Number of active goroutines",
		},
	)

	MemoryUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "repindexor_memory_usage_bytes",
			Help: "Memory usage statistics",
		},
		[]string{"type"},
	)

	startTime = time.Now()
)

func EventProcessedInc(kind string) {
	eventsProcessed.WithLabelValues(kind).Inc()
}

func EventSkippedInc(reason string) {
	eventsSkipped.WithLabelValues(reason).Inc()
}

func EventMalformedInc() {
	eventsMalformed.Inc()
}

func CommitRetryInc() {
	commitRetries.Inc()
}

func LastIngestedBlockSet(blockNum uint64) {
	LastIngestedBlock.Set(float64(blockNum))
}

func EventProcessingTimeLog(kind string, duration time.Duration) {
	eventProcessingTime.WithLabelValues(kind).Observe(duration.Seconds())
}

func OwnerCreatedInc() {
	ownersCreated.Inc()
}

func AgentClassifiedInc() {
	agentsClassified.Inc()
}

func SnapshotWrittenInc() {
	snapshotsWritten.Inc()
}

func ScoreComputedLog(score int64) {
	scoresComputed.Observe(float64(score))
}

func FeedChunkFetchedInc() {
	feedChunksFetched.Inc()
}

func FeedLogsDecodedInc(count int) {
	feedLogsDecoded.Add(float64(count))
}

func FeedHeadBlockSet(blockNum uint64) {
	FeedHeadBlock.Set(float64(blockNum))
}

func ComponentHealthSet(component string, healthy bool) {
	boolAsFloat := float64(1)
	if !healthy {
		boolAsFloat = 0
	}

	ComponentHealth.WithLabelValues(component).Set(boolAsFloat)
}

// UpdateSystemMetrics updates runtime system metrics.
// This should be called periodically (e.g., every 15 seconds).
func UpdateSystemMetrics() {
	// Update uptime
	Uptime.Set(time.Since(startTime).Seconds())

	// Update goroutine count
	Goroutines.Set(float64(runtime.NumGoroutine()))

	// Update memory statistics
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	MemoryUsage.WithLabelValues("alloc").Set(float64(m.Alloc))
	MemoryUsage.WithLabelValues("total_alloc").Set(float64(m.TotalAlloc))
	MemoryUsage.WithLabelValues("sys").Set(float64(m.Sys))
	MemoryUsage.WithLabelValues("heap_inuse").Set(float64(m.HeapInuse))
}
