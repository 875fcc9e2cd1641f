package domain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// unknownLabel replaces label values that did not come from configuration.
const unknownLabel = "unknown"

var (
	// unmappedBlocks counts source blocks no rule could pair, by block type.
	unmappedBlocks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bmtool",
		Subsystem: "mapping",
		Name:      "unmapped_blocks_total",
		Help:      "Source blocks skipped because no target candidate matched",
	}, []string{"type"})

	// asksTotal counts orchestrated requests.
	// Labels: provider, technique, status (ok, invalid, error)
	asksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bmtool",
		Subsystem: "orchestrator",
		Name:      "asks_total",
		Help:      "Orchestrated ask requests by provider, technique and status",
	}, []string{"provider", "technique", "status"})

	// modelTokens counts tokens reported by providers.
	// Labels: provider, direction (prompt, completion)
	modelTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bmtool",
		Subsystem: "orchestrator",
		Name:      "model_tokens_total",
		Help:      "Tokens reported by model calls",
	}, []string{"provider", "direction"})

	co2Grams = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bmtool",
		Subsystem: "orchestrator",
		Name:      "co2_grams_total",
		Help:      "Estimated grams of CO2e emitted by model calls",
	}, []string{"provider"})

	askLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bmtool",
		Subsystem: "orchestrator",
		Name:      "ask_latency_seconds",
		Help:      "End-to-end latency of orchestrated asks",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"provider"})
)
