// Package metrics exposes Prometheus counters for profile-detail writes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's collectors.  A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	upserts *prometheus.CounterVec
	reads   prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		upserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "profile_details",
			Name:      "upserts_total",
			Help:      "Profile detail upserts by outcome (created, updated, rejected, failed).",
		}, []string{"outcome"}),
		reads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "profile_details",
			Name:      "reads_total",
			Help:      "Profile detail read requests served.",
		}),
	}
	reg.MustRegister(m.upserts, m.reads)
	return m
}

// ObserveUpsert counts one upsert with the given outcome.
func (m *Metrics) ObserveUpsert(outcome string) {
	if m == nil {
		return
	}
	m.upserts.WithLabelValues(outcome).Inc()
}

// ObserveRead counts one read.
func (m *Metrics) ObserveRead() {
	if m == nil {
		return
	}
	m.reads.Inc()
}
