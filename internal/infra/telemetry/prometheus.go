package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
)

type PrometheusMetrics struct {
	toolDuration        *prometheus.HistogramVec
	toolAttempts        *prometheus.CounterVec
	coordinations       *prometheus.CounterVec
	coordinationLatency *prometheus.HistogramVec
	recoveryDecisions   *prometheus.CounterVec
	resolutionFailures  *prometheus.CounterVec
	planCache           *prometheus.CounterVec
	registeredTools     prometheus.Gauge
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		toolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codexa_tool_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"tool", "success"},
		),
		toolAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codexa_tool_attempts_total",
				Help: "Total number of tool invocation attempts including retries",
			},
			[]string{"tool"},
		),
		coordinations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codexa_coordinations_total",
				Help: "Total number of coordination runs by outcome",
			},
			[]string{"status"},
		),
		coordinationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codexa_coordination_duration_seconds",
				Help:    "Duration of coordination runs in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stages"},
		),
		recoveryDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codexa_recovery_decisions_total",
				Help: "Total number of recovery decisions by error kind and state",
			},
			[]string{"tool", "kind", "state"},
		),
		resolutionFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codexa_resolution_failures_total",
				Help: "Total number of dependency resolution failures",
			},
			[]string{"kind"},
		),
		planCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codexa_plan_cache_lookups_total",
				Help: "Plan cache lookups by result",
			},
			[]string{"result"},
		),
		registeredTools: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "codexa_registered_tools",
				Help: "Current number of tools in the catalog",
			},
		),
	}
}

func (p *PrometheusMetrics) ObserveToolExecution(metric domain.ToolExecutionMetric) {
	p.toolDuration.WithLabelValues(metric.Tool, strconv.FormatBool(metric.Success)).Observe(metric.Duration.Seconds())
	attempts := metric.Attempts
	if attempts < 1 {
		attempts = 1
	}
	p.toolAttempts.WithLabelValues(metric.Tool).Add(float64(attempts))
}

func (p *PrometheusMetrics) ObserveCoordination(metric domain.CoordinationMetric) {
	p.coordinations.WithLabelValues(string(metric.Status)).Inc()
	p.coordinationLatency.WithLabelValues(strconv.Itoa(metric.Stages)).Observe(metric.Duration.Seconds())
}

func (p *PrometheusMetrics) ObserveRecoveryDecision(tool string, kind domain.ErrorKind, state domain.RecoveryState) {
	p.recoveryDecisions.WithLabelValues(tool, string(kind), string(state)).Inc()
}

func (p *PrometheusMetrics) ObserveResolutionFailure(kind domain.ResolutionErrorKind) {
	p.resolutionFailures.WithLabelValues(string(kind)).Inc()
}

func (p *PrometheusMetrics) ObservePlanCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.planCache.WithLabelValues(result).Inc()
}

func (p *PrometheusMetrics) SetRegisteredTools(count int) {
	p.registeredTools.Set(float64(count))
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
