// Package metrics exposes Prometheus collectors for query executions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for executions.
const (
	OutcomeOK      = "ok"
	OutcomeEmpty   = "empty"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
	OutcomeGated   = "gated"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg        *prometheus.Registry
	executions *prometheus.CounterVec
	remote     prometheus.Histogram
}

// New registers the collectors on a fresh registry. fragments reports the
// number of installed fragment entries; it may be nil.
func New(fragments func() int) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queryforge_executions_total",
			Help: "Query document executions by source kind and outcome.",
		}, []string{"source", "outcome"}),
		remote: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "queryforge_remote_request_seconds",
			Help:    "Latency of remote source requests.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.reg.MustRegister(m.executions, m.remote)
	if fragments != nil {
		m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "queryforge_fragment_entries",
			Help: "Custom join and where fragments currently installed.",
		}, func() float64 { return float64(fragments()) }))
	}
	return m
}

// Execution counts one execution.
func (m *Metrics) Execution(source, outcome string) {
	if m == nil {
		return
	}
	if source == "" {
		source = "unknown"
	}
	m.executions.WithLabelValues(source, outcome).Inc()
}

// Remote observes one remote request duration.
func (m *Metrics) Remote(d time.Duration) {
	if m == nil {
		return
	}
	m.remote.Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
