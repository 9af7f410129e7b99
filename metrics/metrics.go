// Package metrics holds the Prometheus collectors tablero exports on /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for pages, datasets and the assistant.
type Metrics struct {
	PageRenders        *prometheus.CounterVec
	Generations        *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	CacheHits          prometheus.Counter
	DatasetRows        *prometheus.GaugeVec
}

// New returns the process-wide metrics, registering them on first use.
//
// Metrics:
//   - tablero_page_renders_total{page}
//   - tablero_generations_total{mode,outcome}
//   - tablero_generation_duration_seconds{mode}
//   - tablero_cache_hits_total
//   - tablero_dataset_rows{dataset}
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			PageRenders: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tablero_page_renders_total",
					Help: "Total number of dashboard pages rendered",
				},
				[]string{"page"}, // "students", "cases"
			),

			Generations: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tablero_generations_total",
					Help: "Total number of assistant generations",
				},
				[]string{"mode", "outcome"}, // outcome: "ok", "cached", "error", "rate_limited"
			),

			GenerationDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "tablero_generation_duration_seconds",
					Help:    "Duration of language-model calls in seconds",
					Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
				},
				[]string{"mode"},
			),

			CacheHits: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "tablero_cache_hits_total",
					Help: "Total number of assistant replies served from the cache",
				},
			),

			DatasetRows: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "tablero_dataset_rows",
					Help: "Rows currently loaded per dataset",
				},
				[]string{"dataset"},
			),
		}
	})

	return globalMetrics
}
