package budget

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// usageGauge reports today's consumption per dependency class
var usageGauge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "pulse_budget_usage",
		Help: "Daily usage per dependency class and kind (calls or tokens)",
	},
	[]string{"class", "kind"},
)
