package postgres

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var poolUsage = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "pulse_db_pool_usage_percent",
	Help: "Open connections as a percentage of the pool limit.",
})
