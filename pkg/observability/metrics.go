// Package observability packages Prometheus collectors as lifecycle hooks,
// so any agent can be instrumented without the core knowing about metrics.
package observability

import (
	"context"
	"net/http"

	"github.com/parley-ai/parley/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the conversation metric collectors.
type Metrics struct {
	registry *prometheus.Registry

	toolInvocations *prometheus.CounterVec
	toolRefusals    *prometheus.CounterVec
	toolDuration    *prometheus.HistogramVec
	stageChanges    *prometheus.CounterVec
	persistFlushes  *prometheus.CounterVec
}

// New creates and registers the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		toolInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_tool_invocations_total",
			Help: "Total number of tool dispatches",
		}, []string{"agent", "tool"}),
		toolRefusals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_tool_refusals_total",
			Help: "Total number of refused tool dispatches",
		}, []string{"agent", "tool", "kind"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "parley_tool_duration_seconds",
			Help: "Duration of tool executions",
		}, []string{"agent", "tool"}),
		stageChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_stage_changes_total",
			Help: "Total number of workflow stage transitions",
		}, []string{"agent", "to"}),
		persistFlushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_persist_flushes_total",
			Help: "Total number of durable store flushes",
		}, []string{"op", "outcome"}),
	}
	m.registry.MustRegister(
		m.toolInvocations,
		m.toolRefusals,
		m.toolDuration,
		m.stageChanges,
		m.persistFlushes,
	)
	return m
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnToolCall: func(_ context.Context, e *domain.ToolEvent) {
			m.toolInvocations.WithLabelValues(e.Agent, e.ToolName).Inc()
		},
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			m.toolDuration.WithLabelValues(e.Agent, e.ToolName).Observe(e.Duration.Seconds())
			if e.IsRefusal {
				m.toolRefusals.WithLabelValues(e.Agent, e.ToolName, string(e.RefusalKind)).Inc()
			}
		},
		OnStageChange: func(_ context.Context, e *domain.StageEvent) {
			m.stageChanges.WithLabelValues(e.Agent, e.To).Inc()
		},
		OnPersist: func(_ context.Context, e *domain.PersistEvent) {
			outcome := "ok"
			if e.IsError {
				outcome = "error"
			}
			m.persistFlushes.WithLabelValues(e.Op, outcome).Inc()
		},
	}
}

// Handler exposes the collectors for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer returns the underlying registry for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
