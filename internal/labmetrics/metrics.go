// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package labmetrics exposes the lab's own Prometheus metrics. The lab
// measures other code all day; when it runs as a service it should be
// measurable too.
package labmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingest outcomes.
const (
	OutcomeSaved   = "saved"
	OutcomeDropped = "dropped"
	OutcomeError   = "error"
)

var (
	IngestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oncelab_ingest_total",
		Help: "Benchmark runs submitted for persistence, by outcome",
	}, []string{"outcome"})

	SuiteRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oncelab_suite_runs_total",
		Help: "Completed benchmark suite executions",
	})

	SuiteDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "oncelab_suite_duration_seconds",
		Help:    "Wall time of one benchmark suite execution",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	StoredRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "oncelab_stored_runs",
		Help: "Benchmark runs currently persisted in history",
	})
)

// IncIngest records one ingest attempt with a concrete outcome.
func IncIngest(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	IngestTotal.WithLabelValues(outcome).Inc()
}
