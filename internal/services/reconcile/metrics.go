package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the reconciler's collectors.
type Metrics struct {
	Ticks         prometheus.Counter
	QueryFailures *prometheus.CounterVec
	Established   prometheus.Counter
	Peers         prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "meshchat",
			Subsystem: "reconcile",
			Name:      "ticks_total",
			Help:      "Completed reconcile ticks.",
		}),
		QueryFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meshchat",
			Subsystem: "reconcile",
			Name:      "query_failures_total",
			Help:      "Failed per-peer state queries by field.",
		}, []string{"field"}),
		Established: f.NewCounter(prometheus.CounterOpts{
			Namespace: "meshchat",
			Subsystem: "reconcile",
			Name:      "established_total",
			Help:      "Peers observed entering the established session state.",
		}),
		Peers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "meshchat",
			Subsystem: "reconcile",
			Name:      "peers",
			Help:      "Peers in the last published snapshot.",
		}),
	}
}
