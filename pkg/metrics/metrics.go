// Package metrics exposes evaluation progress and results as Prometheus metrics.
package metrics

import (
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/eval"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/judge"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

const namespace = "cypher_eval"

// Outcome label values for examples_total.
const (
	OutcomeOK      = "ok"
	OutcomeTimeout = "timeout"
)

var reportMetrics = []models.Metric{
	models.MetricQueryRelevancy,
	models.MetricQueryCorrectness,
	models.MetricAnswerRelevancy,
	models.MetricAnswerCorrectness,
	models.MetricExactMatch,
	models.MetricExecutionAccuracy,
}

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	examples       *prometheus.CounterVec
	exampleLatency *prometheus.HistogramVec
	judgeCalls     *prometheus.CounterVec
	reportScore    *prometheus.GaugeVec
	reportErrors   *prometheus.GaugeVec
	runsTotal      *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		examples: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "examples_total",
			Help:      "Examples processed by strategy and outcome (ok, timeout or an error kind)",
		}, []string{"strategy", "outcome"}),
		exampleLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "example_duration_seconds",
			Help:      "Time spent generating and executing one example",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"strategy"}),
		judgeCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "judge_calls_total",
			Help:      "Judge calls by metric and status",
		}, []string{"metric", "status"}),
		reportScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "report_score",
			Help:      "Averages of the last completed run per strategy; NaN when undefined",
		}, []string{"strategy", "metric"}),
		reportErrors: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "report_errors",
			Help:      "Error counts of the last completed run per strategy",
		}, []string{"strategy", "kind"}),
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed evaluation runs by strategy",
		}, []string{"strategy"}),
	}
}

// ObserveExample implements eval.Observer.
func (m *Metrics) ObserveExample(strategy string, kind models.ErrorKind, timeout bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	switch {
	case timeout:
		outcome = OutcomeTimeout
	case kind != models.ErrorKindNone:
		outcome = string(kind)
	}
	m.examples.WithLabelValues(strategy, outcome).Inc()
	m.exampleLatency.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// ObserveJudgeCall implements judge.Observer.
func (m *Metrics) ObserveJudgeCall(metric string, ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.judgeCalls.WithLabelValues(metric, status).Inc()
}

// SetReport publishes the averages and error counts of a finished run.
func (m *Metrics) SetReport(r *models.EvaluationReport) {
	if m == nil || r == nil {
		return
	}
	for _, metric := range reportMetrics {
		avg, err := r.Metric(metric)
		if err != nil {
			continue
		}
		v := avg.Value
		if !avg.Defined() {
			v = math.NaN()
		}
		m.reportScore.WithLabelValues(r.Strategy, string(metric)).Set(v)
	}

	m.reportErrors.WithLabelValues(r.Strategy, string(models.ErrorKindMalformedGeneration)).Set(float64(r.Errors.MalformedGeneration))
	m.reportErrors.WithLabelValues(r.Strategy, string(models.ErrorKindGeneration)).Set(float64(r.Errors.Generation))
	m.reportErrors.WithLabelValues(r.Strategy, string(models.ErrorKindQueryExecution)).Set(float64(r.Errors.QueryExecution))
	m.reportErrors.WithLabelValues(r.Strategy, "timeouts").Set(float64(r.Errors.Timeouts))
	m.reportErrors.WithLabelValues(r.Strategy, "judge_unavailable").Set(float64(r.Errors.JudgeUnavailable))
	m.runsTotal.WithLabelValues(r.Strategy).Inc()
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

var (
	_ eval.Observer  = (*Metrics)(nil)
	_ judge.Observer = (*Metrics)(nil)
)
