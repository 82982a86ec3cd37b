// Package metrics exports resolver events to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/krisalay/advert-resolver/types"
)

const subsystem = "advert_resolver"

var _ types.Metrics = (*Prometheus)(nil)

// Prometheus implements types.Metrics with counters registered on a registry.
type Prometheus struct {
	lookups         *prometheus.CounterVec
	removals        *prometheus.CounterVec
	outcomes        *prometheus.CounterVec
	primaryFailures prometheus.Counter
	circuitSkips    prometheus.Counter
}

// NewPrometheus creates the resolver counters and registers them on reg.
// It panics if they are already registered there.
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	return &Prometheus{
		lookups: mustRegisterCounterVec(reg, namespace, "cache_lookups_total",
			"Cache lookups by result.", "result"),
		removals: mustRegisterCounterVec(reg, namespace, "cache_removals_total",
			"Entries dropped from the cache by reason.", "reason"),
		outcomes: mustRegisterCounterVec(reg, namespace, "fallback_outcomes_total",
			"Resolutions that reached the backup provider, by outcome.", "outcome"),
		primaryFailures: mustRegisterCounter(reg, namespace, "primary_failures_total",
			"Failed attempts against the primary provider."),
		circuitSkips: mustRegisterCounter(reg, namespace, "circuit_open_total",
			"Resolutions that skipped the primary provider because the circuit was open."),
	}
}

func mustRegisterCounterVec(reg prometheus.Registerer, namespace, name, help string, labelNames ...string) *prometheus.CounterVec {
	m := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labelNames)
	reg.MustRegister(m)
	return m
}

func mustRegisterCounter(reg prometheus.Registerer, namespace, name, help string) prometheus.Counter {
	m := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
	reg.MustRegister(m)
	return m
}

func (p *Prometheus) Hit()            { p.lookups.WithLabelValues("hit").Inc() }
func (p *Prometheus) Miss()           { p.lookups.WithLabelValues("miss").Inc() }
func (p *Prometheus) Eviction()       { p.removals.WithLabelValues("evicted").Inc() }
func (p *Prometheus) Expire()         { p.removals.WithLabelValues("expired").Inc() }
func (p *Prometheus) PrimaryFailure() { p.primaryFailures.Inc() }
func (p *Prometheus) CircuitOpen()    { p.circuitSkips.Inc() }
func (p *Prometheus) BackupUsed()     { p.outcomes.WithLabelValues("backup").Inc() }
func (p *Prometheus) NotFound()       { p.outcomes.WithLabelValues("not_found").Inc() }
