// Package metrics exposes Prometheus collectors for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors on a private registry so several instances
// (one per test) never clash on registration. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestCount    *prometheus.CounterVec
	llmDuration     *prometheus.HistogramVec
	toolCalls       *prometheus.CounterVec
	analyticsErrors *prometheus.CounterVec
	priceFetches    *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method", "status"},
		),
		requestCount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		llmDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_request_duration_seconds",
				Help:      "Duration of LLM completions including tool rounds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"provider", "outcome"},
		),
		toolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Advisor tool invocations",
			},
			[]string{"tool", "outcome"},
		),
		analyticsErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analytics_errors_total",
				Help:      "Analytics computations rejected, by error kind",
			},
			[]string{"kind"},
		),
		priceFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "price_fetches_total",
				Help:      "Price history lookups by source",
			},
			[]string{"source", "outcome"},
		),
	}
}

func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(route, method, code).Observe(d.Seconds())
	m.requestCount.WithLabelValues(route, method, code).Inc()
}

func (m *Metrics) ObserveLLM(provider string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.llmDuration.WithLabelValues(provider, outcome(err)).Observe(d.Seconds())
}

func (m *Metrics) IncTool(tool string, err error) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome(err)).Inc()
}

func (m *Metrics) IncAnalyticsError(kind string) {
	if m == nil {
		return
	}
	m.analyticsErrors.WithLabelValues(kind).Inc()
}

// IncPriceFetch counts a price lookup; source is "cache" for hits.
func (m *Metrics) IncPriceFetch(source string, err error) {
	if m == nil {
		return
	}
	m.priceFetches.WithLabelValues(source, outcome(err)).Inc()
}

// Handler serves the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
