package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ingestedMappings = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bmtool",
		Subsystem: "ingestion",
		Name:      "mappings_total",
		Help:      "Block mappings written to the mapping corpus",
	})

	frameworkSymbols = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bmtool",
		Subsystem: "ingestion",
		Name:      "framework_symbols_total",
		Help:      "Framework symbols written to the framework corpus",
	})

	// jobsByState counts finished background jobs.
	// Labels: type, state (DONE, FAILED)
	jobsByState = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bmtool",
		Subsystem: "jobs",
		Name:      "finished_total",
		Help:      "Background jobs by type and final state",
	}, []string{"type", "state"})

	jobsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bmtool",
		Subsystem: "jobs",
		Name:      "running",
		Help:      "Background jobs currently holding a worker slot",
	})
)
