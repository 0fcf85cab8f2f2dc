package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Himanshu040604/PregelFlow/pkg/domain"
)

// Namespace prefixes every metric name.
const Namespace = "pregelflow"

// Node outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeDropped = "dropped"
)

// Metrics holds the executor collectors.
type Metrics struct {
	NodeRuns      *prometheus.CounterVec
	NodeDuration  *prometheus.HistogramVec
	Commits       *prometheus.CounterVec
	Runs          *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	InflightNodes prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// uses a private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		NodeRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "node_runs_total",
			Help:      "Node executions by node and outcome.",
		}, []string{"node_id", "outcome"}),
		NodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "node_duration_seconds",
			Help:      "Duration of node executions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"node_id"}),
		Commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "wavefront_commits_total",
			Help:      "Checkpoints committed, by run status.",
		}, []string{"status"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "runs_total",
			Help:      "Executor runs by final status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of executor runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		InflightNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "inflight_nodes",
			Help:      "Node tasks currently executing.",
		}),
		gatherer: reg,
	}
	reg.MustRegister(m.NodeRuns, m.NodeDuration, m.Commits, m.Runs, m.RunDuration, m.InflightNodes)
	return m
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeStart: func(_ context.Context, _ *domain.NodeEvent) {
			m.InflightNodes.Inc()
		},
		OnNodeFinish: func(_ context.Context, e *domain.NodeEvent) {
			m.InflightNodes.Dec()
			m.NodeRuns.WithLabelValues(e.NodeID, nodeOutcome(e)).Inc()
			m.NodeDuration.WithLabelValues(e.NodeID).Observe(e.Duration.Seconds())
		},
		OnCommit: func(_ context.Context, e *domain.CommitEvent) {
			m.Commits.WithLabelValues(string(e.Status)).Inc()
		},
		OnRunFinish: func(_ context.Context, e *domain.RunEvent) {
			m.Runs.WithLabelValues(runOutcome(e)).Inc()
			m.RunDuration.Observe(e.Duration.Seconds())
		},
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func nodeOutcome(e *domain.NodeEvent) string {
	switch {
	case e.Err == nil:
		return OutcomeOK
	case e.Optional:
		return OutcomeDropped
	default:
		return OutcomeFailed
	}
}

func runOutcome(e *domain.RunEvent) string {
	if e.Err != nil {
		return OutcomeFailed
	}
	return string(e.Status)
}
