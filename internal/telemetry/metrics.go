// Package telemetry exposes build metrics in the Prometheus format.
package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ClassOutcomes counts dispatched classes by outcome.
	ClassOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clasp",
		Name:      "class_outcomes_total",
		Help:      "Classes dispatched through the transform chain, by outcome.",
	}, []string{"outcome"})

	// PluginVisitors counts handlers created per plugin.
	PluginVisitors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clasp",
		Name:      "plugin_visitors_total",
		Help:      "Chain handlers created, by plugin.",
	}, []string{"plugin"})

	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "clasp",
		Name:      "phase_duration_seconds",
		Help:      "Duration of each orchestrator phase.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"phase"})
)

// Expose serves /metrics on port in the background. port <= 0 disables it.
func Expose(port int) {
	if port <= 0 {
		return
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		_ = http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
	}()
}
