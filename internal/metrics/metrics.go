// Package metrics holds the Prometheus collectors for the bubble pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Enrichment outcome labels.
const (
	EnrichOK       = "ok"
	EnrichDegraded = "degraded"
	EnrichFallback = "fallback_opinions"
)

var (
	ThreadsCollected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bubbles_threads_collected_total",
		Help: "Threads that passed the engagement floors, per community",
	}, []string{"community"})

	CommunityErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bubbles_community_fetch_errors_total",
		Help: "Failed hot listing fetches, per community",
	}, []string{"community"})

	CommentFetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bubbles_comment_fetch_errors_total",
		Help: "Failed comment fetches",
	})

	ItemsAfterDedupe = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bubbles_items_after_dedupe",
		Help: "Items left after deduplication in the last run",
	})

	Clusters = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bubbles_clusters",
		Help: "Clusters formed in the last run",
	})

	EnrichOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bubbles_enrichment_outcomes_total",
		Help: "Enrichment outcomes by status",
	}, []string{"status"})

	LLMDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bubbles_llm_request_duration_seconds",
		Help:    "Latency of language model calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	LastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bubbles_last_run_timestamp_seconds",
		Help: "Unix time of the last successful run",
	})
)
