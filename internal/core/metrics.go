package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromMetrics exposes seed run counters and latencies as Prometheus collectors.
// It satisfies MetricsRecorder so a Seeder can feed both expvar and Prometheus
// through the same hook.
type PromMetrics struct {
	entitiesCreated *prometheus.CounterVec
	planDuration    *prometheus.HistogramVec
	planResults     *prometheus.CounterVec
}

// NewPromMetrics builds the collectors and registers them on reg. Passing
// prometheus.DefaultRegisterer wires them into the default /metrics handler;
// tests pass a private registry.
func NewPromMetrics(reg prometheus.Registerer) *PromMetrics {
	m := &PromMetrics{
		entitiesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seedcore_entities_created_total",
			Help: "Number of entities created per seed plan.",
		}, []string{"plan"}),
		planDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "seedcore_plan_duration_seconds",
			Help:    "Seed plan execution duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"plan"}),
		planResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seedcore_plan_runs_total",
			Help: "Seed plan executions by status.",
		}, []string{"plan", "status"}),
	}
	reg.MustRegister(m.entitiesCreated, m.planDuration, m.planResults)
	return m
}

// Observe implements MetricsRecorder.
func (m *PromMetrics) Observe(_ context.Context, plan string, success bool, created int, duration time.Duration) {
	if plan == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	m.entitiesCreated.WithLabelValues(plan).Add(float64(created))
	m.planDuration.WithLabelValues(plan).Observe(duration.Seconds())
	m.planResults.WithLabelValues(plan, status).Inc()
}
