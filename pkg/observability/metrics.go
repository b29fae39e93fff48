package observability

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aretw0/grapher/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Grapher collectors.
type Metrics struct {
	LockEvents  *prometheus.CounterVec
	DocumentOps *prometheus.CounterVec
	Iterations  *prometheus.CounterVec
	gatherer    prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg uses a fresh private registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		LockEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grapher_lock_events_total",
				Help: "Lock protocol transitions by event type",
			},
			[]string{"event"},
		),
		DocumentOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grapher_document_operations_total",
				Help: "Document loads and saves by result",
			},
			[]string{"op", "result"},
		),
		Iterations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grapher_iterations_total",
				Help: "Loop iterations by outcome",
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(m.LockEvents, m.DocumentOps, m.Iterations)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnLock: func(_ context.Context, e *domain.LockEvent) {
			m.LockEvents.WithLabelValues(string(e.Type)).Inc()
		},
		OnDocument: func(_ context.Context, e *domain.DocumentEvent) {
			op := "load"
			if e.Type == domain.EventDocumentSave {
				op = "save"
			}
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			m.DocumentOps.WithLabelValues(op, result).Inc()
		},
		OnIteration: func(_ context.Context, e *domain.IterationEvent) {
			outcome := domain.ToRun.String()
			if e.Type == domain.EventIterationSkip {
				outcome = domain.AlreadyDone.String()
			}
			m.Iterations.WithLabelValues(outcome).Inc()
		},
	}
}

// Handler serves the registry the metrics were registered with, falling back
// to the default gatherer.
func (m *Metrics) Handler() http.Handler {
	if m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// LoggingHooks logs every lifecycle event at info level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnLock: func(_ context.Context, e *domain.LockEvent) {
			logger.Info(string(e.Type), "path", e.Path, "state", e.State.String(), "user", e.Holder.User, "station", e.Holder.Station)
		},
		OnDocument: func(_ context.Context, e *domain.DocumentEvent) {
			if e.Err != nil {
				logger.Warn(string(e.Type), "path", e.Path, "error", e.Err)
				return
			}
			logger.Info(string(e.Type), "path", e.Path, "nodes", e.Nodes)
		},
		OnIteration: func(_ context.Context, e *domain.IterationEvent) {
			logger.Info(string(e.Type), "loop", e.LoopNode, "iterator", e.Iterator, "value", e.IterValue)
		},
	}
}

// Chain fans every event out to each set of hooks in order.
func Chain(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnLock: func(ctx context.Context, e *domain.LockEvent) {
			for _, h := range hooks {
				h.EmitLock(ctx, e)
			}
		},
		OnDocument: func(ctx context.Context, e *domain.DocumentEvent) {
			for _, h := range hooks {
				h.EmitDocument(ctx, e)
			}
		},
		OnIteration: func(ctx context.Context, e *domain.IterationEvent) {
			for _, h := range hooks {
				h.EmitIteration(ctx, e)
			}
		},
	}
}
