package ingress

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_requests_total",
		Help: "Requests processed, by brick, final stage and rejection code.",
	}, []string{"brick", "stage", "code"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pulse_request_duration_seconds",
		Help:    "End-to-end request latency by brick.",
		Buckets: prometheus.DefBuckets,
	}, []string{"brick"})

	inflightRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulse_requests_inflight",
		Help: "Requests currently being processed.",
	})
)
