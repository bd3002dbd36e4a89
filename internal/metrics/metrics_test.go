package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCount(t *testing.T) {
	m := New("test")

	m.ObserveRequest("/api/chat", "POST", 200, 20*time.Millisecond)
	m.ObserveRequest("/api/chat", "POST", 200, 30*time.Millisecond)
	m.IncTool("calculate_portfolio_risk", nil)
	m.IncTool("calculate_portfolio_risk", errors.New("boom"))
	m.IncAnalyticsError("invalid input")

	out := scrape(t, m)
	assert.Contains(t, out, `test_http_requests_total{method="POST",route="/api/chat",status="200"} 2`)
	assert.Contains(t, out, `test_tool_calls_total{outcome="error",tool="calculate_portfolio_risk"} 1`)
	assert.Contains(t, out, `test_analytics_errors_total{kind="invalid input"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("/", "GET", 200, time.Second)
		m.ObserveLLM("demo", nil, time.Second)
		m.IncTool("x", nil)
		m.IncAnalyticsError("x")
		m.IncPriceFetch("cache", nil)
	})
}

func TestInstancesDoNotClash(t *testing.T) {
	assert.NotPanics(t, func() {
		New("test")
		New("test")
	})
}

func TestHandler(t *testing.T) {
	m := New("wealth")
	m.ObserveLLM("gemini", nil, time.Second)

	assert.Contains(t, scrape(t, m), `wealth_llm_request_duration_seconds_count{outcome="ok",provider="gemini"} 1`)
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}
