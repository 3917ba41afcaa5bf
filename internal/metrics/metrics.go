// Package metrics exposes Prometheus collectors for table builds. The CLI is
// short-lived, so collectors are exported to a node-exporter textfile rather
// than scraped.
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Build outcomes used as label values.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

var (
	tableBuildsTotal           *prometheus.CounterVec
	tableBuildDurationSeconds  *prometheus.HistogramVec
	tableLastSuccessTimestamps *prometheus.GaugeVec
	buildRunsTotal             *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		tableBuildsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vatk_table_builds_total",
				Help: "Total number of table build jobs attempted, labeled by job and outcome.",
			},
			[]string{"job", "outcome"},
		)

		tableBuildDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vatk_table_build_duration_seconds",
				Help:    "Histogram of build-and-checkpoint durations, labeled by job.",
				Buckets: []float64{1, 10, 30, 60, 300, 900, 1800, 3600, 7200},
			},
			[]string{"job"},
		)

		tableLastSuccessTimestamps = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vatk_table_last_success_timestamp_seconds",
				Help: "Unix time of the last successful checkpoint, labeled by job.",
			},
			[]string{"job"},
		)

		buildRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vatk_build_runs_total",
				Help: "Total number of mktables invocations, labeled by outcome.",
			},
			[]string{"outcome"},
		)
	})
}

// ObserveJob records one attempted table build.
func ObserveJob(job, outcome string, elapsed time.Duration, finishedAt time.Time) {
	Init()
	tableBuildsTotal.WithLabelValues(job, outcome).Inc()
	tableBuildDurationSeconds.WithLabelValues(job).Observe(elapsed.Seconds())
	if outcome == OutcomeSucceeded {
		tableLastSuccessTimestamps.WithLabelValues(job).Set(float64(finishedAt.Unix()))
	}
}

// ObserveRun records the outcome of a whole invocation.
func ObserveRun(outcome string) {
	Init()
	buildRunsTotal.WithLabelValues(outcome).Inc()
}

// WriteTextfile dumps the default registry in the text exposition format,
// atomically replacing path.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
