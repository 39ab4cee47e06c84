// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ImageResolutionsTotal counts resolver outcomes: found, sentinel, cached
	ImageResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resolutions_total",
			Help: "Total number of image resolutions by outcome",
		},
		[]string{"outcome"},
	)

	// ImageResolutionDuration tracks end-to-end resolver latency
	ImageResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "image_resolution_duration_seconds",
			Help:    "Duration of image resolutions in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
	)

	// UpstreamErrorsTotal counts suppressed Wikipedia/Commons failures per operation
	UpstreamErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_upstream_errors_total",
			Help: "Total number of suppressed upstream errors during image resolution",
		},
		[]string{"operation"},
	)

	// SwipesTotal counts recorded swipes by direction
	SwipesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swipes_total",
			Help: "Total number of recorded swipes",
		},
		[]string{"direction"},
	)

	// MatchesCreatedTotal counts matches created (reused matches are not counted)
	MatchesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matches_created_total",
			Help: "Total number of matches created",
		},
	)

	// ImportRowsTotal counts rows written by the dataset import per table
	ImportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_rows_total",
			Help: "Total number of rows written by dataset imports",
		},
		[]string{"table"},
	)
)

// RecordImageResolution records one resolver outcome and its latency
func RecordImageResolution(outcome string, elapsed time.Duration) {
	ImageResolutionsTotal.WithLabelValues(outcome).Inc()
	ImageResolutionDuration.Observe(elapsed.Seconds())
}

// Handler exposes the default registry as a fiber handler
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
