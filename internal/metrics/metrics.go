// Package metrics holds the Prometheus instruments of the calibration engine.
// A Set is injected where needed; there are no global collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Set bundles every instrument the engine records into.
type Set struct {
	TasksTotal    *prometheus.CounterVec
	GateFailures  prometheus.Counter
	FilterDropped *prometheus.CounterVec
	GroupsTotal   prometheus.Counter
}

// New registers the instrument set with the given registerer.
func New(reg prometheus.Registerer) *Set {
	s := &Set{
		TasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "calib",
			Name:      "tasks_total",
			Help:      "Task attempts by kind and outcome.",
		}, []string{"kind", "outcome"}),
		GateFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "calib",
			Name:      "quality_gate_failures_total",
			Help:      "Attempts rejected by a quality gate.",
		}),
		FilterDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "calib",
			Name:      "filter_dropped_total",
			Help:      "Candidates dropped per filter.",
		}, []string{"filter"}),
		GroupsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "calib",
			Name:      "groups_total",
			Help:      "Conflict-free groups executed.",
		}),
	}
	reg.MustRegister(s.TasksTotal, s.GateFailures, s.FilterDropped, s.GroupsTotal)
	return s
}

// NewUnregistered returns a set backed by a private registry, for callers
// that do not export metrics (tests, one-shot CLI runs).
func NewUnregistered() *Set {
	return New(prometheus.NewRegistry())
}
