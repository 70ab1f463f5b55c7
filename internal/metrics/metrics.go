package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	TierRequest = "request"
	TierShared  = "shared"
	TierBackend = "backend"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ansel_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ansel_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// GalleryLookups counts gallery resolutions by the tier that served them.
	GalleryLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ansel_gallery_lookups_total",
			Help: "Gallery lookups by serving tier.",
		},
		[]string{"tier"},
	)
)
