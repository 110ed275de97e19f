// Package metrics registers prometheus instruments for the aggregation
// pipeline and the telemetry ingest path
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "aquawatch_"

	// ResultSuccess and ResultError are the canonical result labels
	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	aggregateRuns     *prometheus.CounterVec
	aggregateLatency  *prometheus.HistogramVec
	aggregateMachines *prometheus.CounterVec

	eventsDetected *prometheus.CounterVec
	snapshotsRead  prometheus.Counter
)

// Init registers the process metrics, safe to call more than once
func Init() {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total telemetry ingest requests by result",
			},
			[]string{"result"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Telemetry ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		aggregateRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "aggregate_runs_total",
				Help: "Total aggregation runs by mode and result",
			},
			[]string{"mode", "result"},
		)
		aggregateLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "aggregate_run_latency_seconds",
				Help:    "Aggregation run latency in seconds",
				Buckets: []float64{.1, .5, 1, 5, 15, 60, 300, 900},
			},
			[]string{"mode"},
		)
		aggregateMachines = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "aggregate_machines_total",
				Help: "Machines processed by aggregation runs, by result",
			},
			[]string{"result"},
		)

		eventsDetected = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "events_detected_total",
				Help: "Production and drainage events detected, by type",
			},
			[]string{"type"},
		)
		snapshotsRead = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "snapshots_read_total",
				Help: "Telemetry snapshots read from clickhouse",
			},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestLatency,
			aggregateRuns,
			aggregateLatency,
			aggregateMachines,
			eventsDetected,
			snapshotsRead,
		)
	})
}

// Handler returns the prometheus scrape handler
func Handler() http.Handler { return promhttp.Handler() }

// ObserveIngest records one ingest request
func ObserveIngest(result string, d time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(d.Seconds())
	}
}

// ObserveAggregateRun records one aggregation run
func ObserveAggregateRun(mode, result string, d time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if aggregateRuns != nil {
		aggregateRuns.WithLabelValues(mode, result).Inc()
	}
	if aggregateLatency != nil {
		aggregateLatency.WithLabelValues(mode).Observe(d.Seconds())
	}
}

// IncMachineProcessed counts a per-machine outcome within a run
func IncMachineProcessed(result string) {
	if result == "" {
		result = ResultSuccess
	}
	if aggregateMachines != nil {
		aggregateMachines.WithLabelValues(result).Inc()
	}
}

// IncEventDetected counts one detected event by type
func IncEventDetected(eventType string) {
	if eventsDetected != nil {
		eventsDetected.WithLabelValues(eventType).Inc()
	}
}

// AddSnapshotsRead counts snapshots fetched for detection or classification
func AddSnapshotsRead(n int) {
	if snapshotsRead != nil && n > 0 {
		snapshotsRead.Add(float64(n))
	}
}
