// Package metrics exposes the process's Prometheus collectors:
// promauto-registered counters/histograms, served via promhttp on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OperationsTotal counts completed core operations by name and outcome.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cargox_operations_total",
			Help: "Total number of core operations executed, by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	// OperationDuration measures the wall-clock cost of each core operation.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cargox_operation_duration_seconds",
			Help:    "Core operation duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// ItemsPlaced counts items successfully placed across place_all runs.
	ItemsPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cargox_items_placed_total",
		Help: "Total number of items successfully placed.",
	})

	// ItemsUnplaced counts items that could not be placed.
	ItemsUnplaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cargox_items_unplaced_total",
		Help: "Total number of items that failed placement.",
	})

	// WasteItems tracks the current count of items classified as waste.
	WasteItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cargox_waste_items",
		Help: "Current number of items classified as waste.",
	})

	// ContainerUtilization tracks per-container volumetric utilization.
	ContainerUtilization = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cargox_container_utilization_ratio",
			Help: "Fraction of a container's interior volume currently occupied.",
		},
		[]string{"container_id", "zone"},
	)
)

// Handler returns the promhttp handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
