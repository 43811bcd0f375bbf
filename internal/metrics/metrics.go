// Package metrics exposes ranking state machine metrics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus implements session.Metrics on its own registry, so several
// instances (one per test) never collide.
type Prometheus struct {
	registry *prometheus.Registry

	sessionsStarted  prometheus.Counter
	answers          *prometheus.CounterVec
	sessionsFinished *prometheus.CounterVec
	storeConflicts   prometheus.Counter
	opDuration       *prometheus.HistogramVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		sessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "toplist_sessions_started_total",
			Help: "Ranking sessions started.",
		}),
		answers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "toplist_answers_total",
			Help: "Answers received, by result (accepted, stale, abstain).",
		}, []string{"result"}),
		sessionsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "toplist_sessions_finished_total",
			Help: "Ranking sessions ended, by outcome (completed, cancelled, superseded).",
		}, []string{"outcome"}),
		storeConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "toplist_store_conflicts_total",
			Help: "Session saves rejected by the version check.",
		}),
		opDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "toplist_operation_duration_seconds",
			Help:    "Latency of state machine operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

// SessionStarted implements session.Metrics.
func (p *Prometheus) SessionStarted() { p.sessionsStarted.Inc() }

// AnswerRecorded implements session.Metrics.
func (p *Prometheus) AnswerRecorded(result string) { p.answers.WithLabelValues(result).Inc() }

// SessionFinished implements session.Metrics.
func (p *Prometheus) SessionFinished(outcome string) {
	p.sessionsFinished.WithLabelValues(outcome).Inc()
}

// StoreConflict implements session.Metrics.
func (p *Prometheus) StoreConflict() { p.storeConflicts.Inc() }

// ObserveOperation implements session.Metrics.
func (p *Prometheus) ObserveOperation(op string, d time.Duration) {
	p.opDuration.WithLabelValues(op).Observe(d.Seconds())
}

// Registry returns the registry the collectors live on.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
