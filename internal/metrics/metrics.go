// Package metrics exposes prometheus instrumentation for the briefing pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderFetchTotal counts provider fan-out outcomes by status.
	ProviderFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daybrief",
			Name:      "provider_fetch_total",
			Help:      "Provider fetch outcomes by provider and status.",
		},
		[]string{"provider", "status"},
	)

	// ProviderFetchSeconds observes per-provider fetch latency.
	ProviderFetchSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "daybrief",
			Name:      "provider_fetch_seconds",
			Help:      "Per-provider fetch latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// BriefingsGeneratedTotal counts completed pipeline runs by intent.
	BriefingsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daybrief",
			Name:      "briefings_generated_total",
			Help:      "Completed briefing syntheses by intent.",
		},
		[]string{"intent"},
	)
)
