package capacity

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts subscription capacity measurements changed by reconciliation. Each affected measurement increments exactly one counter once.
type Metrics struct {
	Created prometheus.Counter
	Updated prometheus.Counter
	Deleted prometheus.Counter
}

// NewMetrics creates the counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tally",
			Subsystem: "capacity",
			Name:      "measurements_created_total",
			Help:      "Subscription capacity measurements created by reconciliation.",
		}),
		Updated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tally",
			Subsystem: "capacity",
			Name:      "measurements_updated_total",
			Help:      "Subscription capacity measurements whose value changed during reconciliation.",
		}),
		Deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tally",
			Subsystem: "capacity",
			Name:      "measurements_deleted_total",
			Help:      "Stale or denylisted subscription capacity measurements deleted by reconciliation.",
		}),
	}
	reg.MustRegister(m.Created, m.Updated, m.Deleted)
	return m
}
