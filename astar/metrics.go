package astar

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// searchTotal counts finished searches by mode ("batch" or "step") and result.
	searchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathgrid_search_total",
		Help: "Total finished searches by mode and result",
	}, []string{"mode", "result"})

	// searchExpansions tracks how many cells a finished search expanded.
	searchExpansions = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pathgrid_search_expanded_cells",
		Help:    "Number of cells expanded per finished search",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1 to ~8k cells
	}, []string{"mode"})

	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pathgrid_search_duration_seconds",
		Help:    "Batch search duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14), // 10µs to ~80ms
	})

	// sessionTotal counts step-wise sessions: "started", "superseded" or "discarded".
	sessionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathgrid_session_total",
		Help: "Step-wise session lifecycle events",
	}, []string{"event"})

	wallAnomalyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathgrid_wall_anomaly_total",
		Help: "Wall toggle pairs that were skipped, by kind",
	}, []string{"kind"})

	requestFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathgrid_request_failed_total",
		Help: "Inbound requests rejected by the engine, by request type",
	}, []string{"request"})
)

func observeSearch(mode string, result Result, err error, elapsed time.Duration) {
	if err != nil {
		searchTotal.WithLabelValues(mode, "error").Inc()
		return
	}
	searchTotal.WithLabelValues(mode, result.Status.String()).Inc()
	searchExpansions.WithLabelValues(mode).Observe(float64(len(result.Visited)))
	if elapsed > 0 {
		searchDuration.Observe(elapsed.Seconds())
	}
}
