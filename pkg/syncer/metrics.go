// Copyright 2024-2026 Aiku AI

package syncer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	lastRunEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "james_sync",
			Subsystem: "syncer",
			Name:      "last_run_entries",
			Help:      "Entries handled by the last run of each kind, by outcome",
		},
		[]string{"kind", "outcome"},
	)
	lastRunDuration = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "james_sync",
			Subsystem: "syncer",
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last run of each kind",
		},
		[]string{"kind"},
	)
	lastRunTimestamp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "james_sync",
			Subsystem: "syncer",
			Name:      "last_run_timestamp_seconds",
			Help:      "Completion time of the last run of each kind",
		},
		[]string{"kind"},
	)
	runErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "james_sync",
			Subsystem: "syncer",
			Name:      "run_errors_total",
			Help:      "Runs aborted by an error",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(lastRunEntries, lastRunDuration, lastRunTimestamp, runErrors)
}

func (r *Result) export() {
	kind := string(r.Kind)
	lastRunEntries.WithLabelValues(kind, "created").Set(float64(r.Created))
	lastRunEntries.WithLabelValues(kind, "updated").Set(float64(r.Updated))
	lastRunEntries.WithLabelValues(kind, "deleted").Set(float64(r.Deleted))
	lastRunEntries.WithLabelValues(kind, "skipped").Set(float64(r.Skipped))
	lastRunEntries.WithLabelValues(kind, "failed").Set(float64(r.Failed))
	lastRunDuration.WithLabelValues(kind).Set(r.Duration.Seconds())
	lastRunTimestamp.WithLabelValues(kind).Set(float64(time.Now().Unix()))
}
