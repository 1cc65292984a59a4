package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the prediction service

var (
	// Football API metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aibets_api_calls_total",
			Help: "Total number of API-Football calls",
		},
		[]string{"endpoint", "status"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aibets_api_call_duration_seconds",
			Help:    "Duration of API-Football calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// LLM metrics
	LLMCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aibets_llm_calls_total",
			Help: "Total number of chat completion calls",
		},
		[]string{"model", "status"},
	)

	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aibets_llm_call_duration_seconds",
			Help:    "Duration of chat completion calls in seconds",
			Buckets: []float64{1, 5, 10, 20, 30, 60, 120},
		},
		[]string{"model"},
	)

	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aibets_llm_tokens_total",
			Help: "Total number of tokens reported by the LLM provider",
		},
		[]string{"model", "kind"},
	)

	// Prediction metrics
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aibets_predictions_total",
			Help: "Prediction generation attempts by outcome",
		},
		[]string{"outcome"},
	)

	PredictionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aibets_prediction_duration_seconds",
			Help:    "End-to-end duration of a single prediction generation",
			Buckets: []float64{1, 5, 10, 20, 30, 60, 120},
		},
	)

	LastBatchFixtures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aibets_last_batch_fixtures",
			Help: "Fixture counts from the most recent batch pass",
		},
		[]string{"result"},
	)

	// Database metrics
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aibets_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "table", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aibets_db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aibets_db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aibets_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aibets_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"kind"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aibets_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"kind"},
	)

	// Sync metrics
	SyncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aibets_sync_operations_total",
			Help: "Total number of sync operations",
		},
		[]string{"type", "status"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aibets_sync_duration_seconds",
			Help:    "Duration of sync operations in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"type"},
	)

	FixturesSynced = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aibets_fixtures_synced",
			Help: "Fixtures upserted by the most recent sync",
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aibets_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aibets_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)

	LastSuccessfulSync = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aibets_last_successful_sync_timestamp",
			Help: "Timestamp of last successful sync operation",
		},
		[]string{"type"},
	)
)

// RecordAPICall records an API call metric
func RecordAPICall(endpoint, status string, duration float64) {
	APICallsTotal.WithLabelValues(endpoint, status).Inc()
	APICallDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordLLMCall records a chat completion call
func RecordLLMCall(model, status string, duration float64) {
	LLMCallsTotal.WithLabelValues(model, status).Inc()
	LLMCallDuration.WithLabelValues(model).Observe(duration)
}

// RecordLLMTokens records token usage reported by the provider
func RecordLLMTokens(model string, prompt, completion int) {
	LLMTokensTotal.WithLabelValues(model, "prompt").Add(float64(prompt))
	LLMTokensTotal.WithLabelValues(model, "completion").Add(float64(completion))
}

// RecordPrediction records the outcome of one generation attempt
func RecordPrediction(outcome string, duration float64) {
	PredictionsTotal.WithLabelValues(outcome).Inc()
	PredictionDuration.Observe(duration)
}

// RecordBatch records the summary of a batch pass
func RecordBatch(total, generated, skipped, failed int) {
	LastBatchFixtures.WithLabelValues("total").Set(float64(total))
	LastBatchFixtures.WithLabelValues("generated").Set(float64(generated))
	LastBatchFixtures.WithLabelValues("skipped").Set(float64(skipped))
	LastBatchFixtures.WithLabelValues("failed").Set(float64(failed))
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table, status string, duration float64) {
	DBQueriesTotal.WithLabelValues(operation, table, status).Inc()
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordCacheHit records a cache hit
func RecordCacheHit(kind string) {
	CacheHitsTotal.WithLabelValues(kind).Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss(kind string) {
	CacheMissesTotal.WithLabelValues(kind).Inc()
}

// RecordSync records a sync operation
func RecordSync(syncType, status string, duration float64) {
	SyncOperationsTotal.WithLabelValues(syncType, status).Inc()
	SyncDuration.WithLabelValues(syncType).Observe(duration)

	if status == "success" {
		LastSuccessfulSync.WithLabelValues(syncType).SetToCurrentTime()
	}
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(active, idle int32) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
