// Package metrics defines Prometheus collectors for the pipeline stages,
// matching the pack-wide convention (cuemby-warren,
// jordigilh-kubernaut, and r3e-network-service_layer all instrument with
// prometheus/client_golang) rather than the teacher, which has no metrics
// surface at all. Only RealtimeConnections is updated (by
// internal/realtime); the ingest, enrichment, fusion, cluster and HTTP
// collectors are registered and served at /metrics, but no code increments
// or observes them, so they stay at zero.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	IngestEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitrep_ingest_events_total",
		Help: "Total events ingested per source.",
	}, []string{"source"})

	IngestFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitrep_ingest_failures_total",
		Help: "Total fetch failures per source.",
	}, []string{"source"})

	EnrichmentDegradedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sitrep_enrichment_degraded_total",
		Help: "Total events enriched via the deterministic fallback instead of the LLM.",
	})

	FusionPassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "sitrep_fusion_pass_duration_seconds",
		Help: "Duration of each fusion pass.",
	})

	ClusterCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sitrep_cluster_count",
		Help: "Current number of clusters.",
	})

	RealtimeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sitrep_realtime_connections",
		Help: "Current number of connected realtime broker clients.",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "sitrep_http_request_duration_seconds",
		Help: "HTTP request latency by route and status.",
	}, []string{"route", "status"})
)

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
