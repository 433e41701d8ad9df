package reactive

import "github.com/prometheus/client_golang/prometheus"

// schedulerMetrics wires the Changes/Updates/Disposes/Effects drain loop to
// Prometheus so a host process can expose /metrics and alert on a graph
// that is ticking abnormally often or draining unusually large batches.
// Every Scheduler built by NewScheduler shares one set of collectors,
// registered against the default registry.
type schedulerMetrics struct {
	ticks    prometheus.Counter
	changes  prometheus.Histogram
	updates  prometheus.Histogram
	disposes prometheus.Histogram
	effects  prometheus.Histogram
}

// NewSchedulerMetrics registers the scheduler's collectors against reg and
// returns a handle a Scheduler can report into.
func NewSchedulerMetrics(reg prometheus.Registerer) *schedulerMetrics {
	m := &schedulerMetrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rxwp",
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Number of tick-drain rounds executed across all queues.",
		}),
		changes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rxwp", Subsystem: "scheduler", Name: "changes_drained",
			Help: "Sources committed per tick.", Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		updates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rxwp", Subsystem: "scheduler", Name: "updates_drained",
			Help: "Computations recomputed per tick.", Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		disposes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rxwp", Subsystem: "scheduler", Name: "disposes_drained",
			Help: "Nodes disposed per tick.", Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		effects: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rxwp", Subsystem: "scheduler", Name: "effects_drained",
			Help: "Render/after effects run per tick.", Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
	reg.MustRegister(m.ticks, m.changes, m.updates, m.disposes, m.effects)
	return m
}

func (m *schedulerMetrics) observeTick(changes, updates, disposes, effects int) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.changes.Observe(float64(changes))
	m.updates.Observe(float64(updates))
	m.disposes.Observe(float64(disposes))
	m.effects.Observe(float64(effects))
}

// defaultSchedulerMetrics backs every Scheduler created by NewScheduler.
// It is registered against the default Prometheus registry when this
// package is initialized; exposing it takes a handler such as promhttp's.
var defaultSchedulerMetrics = NewSchedulerMetrics(prometheus.DefaultRegisterer)
