// Package metrics exposes Prometheus collectors for comparison runs and the
// HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ComparisonsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolcost_comparisons_total",
			Help: "Comparison runs by origin and outcome",
		},
		[]string{"origin", "status"},
	)

	ComparisonDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "toolcost_comparison_duration_seconds",
			Help:    "Time spent reading, parsing and merging quotation files",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"origin"},
	)

	DocumentsParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolcost_documents_parsed_total",
			Help: "Quotation documents parsed by source",
		},
		[]string{"source"},
	)

	OrphanLinesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "toolcost_orphan_lines_dropped_total",
			Help: "Lines dropped because they appeared before the first module header",
		},
	)

	EmailsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolcost_emails_processed_total",
			Help: "Mail messages processed by resulting status",
		},
		[]string{"status"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolcost_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)
)
