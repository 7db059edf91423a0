package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	answersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpilot_answers_total",
			Help: "Total number of answered questions by recognized query shape and outcome.",
		},
		[]string{"shape", "outcome"},
	)
	answerLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stockpilot_answer_latency_seconds",
			Help:    "End-to-end latency of the question answering pipeline.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30},
		},
	)
	unrecognizedQueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stockpilot_query_unrecognized_total",
			Help: "Total number of generated queries that fell back to selecting every row.",
		},
	)
	guardRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpilot_guard_rejections_total",
			Help: "Total number of generated queries rejected for containing a mutating keyword.",
		},
		[]string{"keyword"},
	)
	degradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpilot_degraded_total",
			Help: "Total number of responses served with a canned fallback, by component.",
		},
		[]string{"component"},
	)
	oracleCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpilot_oracle_calls_total",
			Help: "Total number of language model completions by provider and result.",
		},
		[]string{"provider", "result"},
	)
	oracleLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockpilot_oracle_latency_seconds",
			Help:    "Language model completion latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15},
		},
		[]string{"provider"},
	)
	voiceSessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stockpilot_voice_sessions_active",
			Help: "Current number of open voice call sessions.",
		},
	)
	voiceEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpilot_voice_events_total",
			Help: "Total number of voice webhook events by type.",
		},
		[]string{"type"},
	)
	negotiationCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpilot_negotiation_calls_total",
			Help: "Total number of supplier negotiation calls by status.",
		},
		[]string{"status"},
	)
	snapshotsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stockpilot_snapshots_total",
			Help: "Total number of inventory snapshots exported.",
		},
	)
	snapshotRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stockpilot_snapshot_rows",
			Help: "Row count of the most recently exported inventory snapshot.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		answersTotal,
		answerLatencySeconds,
		unrecognizedQueriesTotal,
		guardRejectionsTotal,
		degradedTotal,
		oracleCallsTotal,
		oracleLatencySeconds,
		voiceSessionsActive,
		voiceEventsTotal,
		negotiationCallsTotal,
		snapshotsTotal,
		snapshotRows,
	)
}

func ObserveAnswer(shape, outcome string, elapsed time.Duration) {
	if shape == "" {
		shape = "none"
	}
	answersTotal.WithLabelValues(shape, outcome).Inc()
	answerLatencySeconds.Observe(elapsed.Seconds())
}

func IncrementUnrecognizedQuery() {
	unrecognizedQueriesTotal.Inc()
}

func IncrementGuardRejection(keyword string) {
	guardRejectionsTotal.WithLabelValues(keyword).Inc()
}

func IncrementDegraded(component string) {
	degradedTotal.WithLabelValues(component).Inc()
}

func ObserveOracleCall(provider string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	oracleCallsTotal.WithLabelValues(provider, result).Inc()
	oracleLatencySeconds.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func SetVoiceSessionsActive(count int) {
	voiceSessionsActive.Set(float64(count))
}

func IncrementVoiceEvent(eventType string) {
	voiceEventsTotal.WithLabelValues(eventType).Inc()
}

func IncrementNegotiationCall(status string) {
	negotiationCallsTotal.WithLabelValues(status).Inc()
}

func ObserveSnapshot(rows int64) {
	snapshotsTotal.Inc()
	snapshotRows.Set(float64(rows))
}
