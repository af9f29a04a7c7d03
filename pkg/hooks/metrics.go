// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hooks

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status constants for call metrics.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusPanic   = "panic"
)

// CallsTotal counts dispatch passes by name and outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var CallsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hooks_calls_total",
		Help: "Total number of hook calls",
	},
	[]string{"hook", "status"},
)

// CallDuration observes the wall time of a full dispatch pass.
// Use RegisterMetrics to register this with a Prometheus registry.
var CallDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "hooks_call_duration_seconds",
		Help:    "Hook call duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"hook"},
)

// Invocations counts individual callback invocations by stage.
// Use RegisterMetrics to register this with a Prometheus registry.
var Invocations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hooks_invocations_total",
		Help: "Total number of callback invocations by dispatch stage",
	},
	[]string{"stage"},
)

// RedirectsRejected counts Redirect calls refused because of a cycle.
// Use RegisterMetrics to register this with a Prometheus registry.
var RedirectsRejected = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "hooks_redirects_rejected_total",
		Help: "Total number of redirects rejected as circular",
	},
)

// RegisterMetrics registers hooks package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(CallsTotal)
	reg.MustRegister(CallDuration)
	reg.MustRegister(Invocations)
	reg.MustRegister(RedirectsRejected)
}

// callRecorder tracks metrics for a single dispatch pass.
type callRecorder struct {
	startTime time.Time
	name      string
}

func newCallRecorder(name string) *callRecorder {
	return &callRecorder{startTime: time.Now(), name: name}
}

// Record writes the collected metrics. completed is false when the pass is
// unwinding from a panic.
func (r *callRecorder) Record(completed bool, err error) {
	status := StatusSuccess
	switch {
	case !completed:
		status = StatusPanic
	case err != nil:
		status = StatusError
	}
	CallsTotal.WithLabelValues(r.name, status).Inc()
	CallDuration.WithLabelValues(r.name).Observe(time.Since(r.startTime).Seconds())
}

func recordInvocation(stage Stage) {
	Invocations.WithLabelValues(string(stage)).Inc()
}
