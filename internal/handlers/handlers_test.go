package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealth-go-api/internal/advisor"
	"wealth-go-api/internal/config"
	"wealth-go-api/internal/llm"
	"wealth-go-api/internal/metrics"
	"wealth-go-api/internal/models"
	"wealth-go-api/internal/services"
)

type staticSource struct{ closes []float64 }

func (s staticSource) Name() string { return "static" }

func (s staticSource) GetDailyCloses(ctx context.Context, symbol string, days int) (*models.PriceHistory, error) {
	end := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, len(s.closes))
	for i := range dates {
		dates[i] = end.AddDate(0, 0, i-len(dates)+1)
	}
	return &models.PriceHistory{Symbol: symbol, Dates: dates, Closes: s.closes, LastUpdated: time.Now(), Source: "static"}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		ConfidenceLevel:     0.95,
		RiskFreeRate:        0.04,
		PeriodsPerYear:      252,
		ThresholdAssetClass: 0.40,
		ThresholdSector:     0.30,
		ThresholdGeography:  0.50,
		ThresholdHolding:    0.20,
	}
}

func setupApp(t *testing.T, provider llm.Provider, marketData *services.MarketDataService) *fiber.App {
	t.Helper()
	m := metrics.New("test")
	log := zerolog.Nop()
	mem := services.NewMemoryService(nil, log)
	analysis := services.NewAnalysisService(testConfig(), marketData, m, log)
	adv := advisor.New(provider, mem, analysis, 10, m, log)

	app := fiber.New(fiber.Config{ErrorHandler: CustomErrorHandler})
	app.Use(Instrument(m, log))
	Register(app,
		NewHealthHandler(adv.Provider(), mem.Store()),
		NewChatHandler(adv, mem),
		NewAnalysisHandler(analysis),
	)
	return app
}

func do(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

var samplePortfolio = []map[string]any{
	{"symbol": "VTI", "value": 50000, "asset_class": "equity", "sector": "diversified", "geography": "US"},
	{"symbol": "BND", "value": 30000, "asset_class": "bond", "sector": "bonds", "geography": "US"},
	{"symbol": "VXUS", "value": 20000, "asset_class": "equity", "sector": "diversified", "geography": "International"},
}

func TestHealth(t *testing.T) {
	app := setupApp(t, llm.NewDemo(), nil)

	status, body := do(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "demo", body["provider"])
	assert.Equal(t, "memory", body["store"])

	status, body = do(t, app, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", body["status"])
}

func TestChatAssignsUserID(t *testing.T) {
	app := setupApp(t, llm.NewDemo(), nil)

	status, body := do(t, app, http.MethodPost, "/api/chat", map[string]any{"message": "hello"})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body["response"], "demo mode")
	assert.NotEmpty(t, body["html"])
	userID, _ := body["user_id"].(string)
	require.NotEmpty(t, userID)

	status, body = do(t, app, http.MethodGet, "/api/memory?user_id="+userID, nil)
	require.Equal(t, http.StatusOK, status)
	summary := body["summary"].(map[string]any)
	assert.EqualValues(t, 2, summary["message_count"])
}

func TestChatValidation(t *testing.T) {
	app := setupApp(t, llm.NewDemo(), nil)

	status, body := do(t, app, http.MethodPost, "/api/chat", map[string]any{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Message is required", body["error"])
	assert.EqualValues(t, 400, body["code"])

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

type failingProvider struct{}

func (failingProvider) Name() string { return "failing" }

func (failingProvider) Complete(context.Context, llm.Request) (*llm.Response, error) {
	return nil, &llm.Error{Provider: "failing", Err: io.ErrUnexpectedEOF}
}

func TestChatProviderFailureIsBadGateway(t *testing.T) {
	app := setupApp(t, failingProvider{}, nil)

	status, body := do(t, app, http.MethodPost, "/api/chat", map[string]any{"message": "hi", "user_id": "u1"})
	assert.Equal(t, http.StatusBadGateway, status)
	assert.EqualValues(t, 502, body["code"])
}

func TestMemoryLifecycle(t *testing.T) {
	app := setupApp(t, llm.NewDemo(), nil)

	status, _ := do(t, app, http.MethodPost, "/api/preferences", map[string]any{
		"user_id":     "u1",
		"preferences": map[string]any{"risk_level": "moderate"},
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = do(t, app, http.MethodPost, "/api/portfolio", map[string]any{"user_id": "u1", "portfolio": samplePortfolio})
	require.Equal(t, http.StatusOK, status)

	status, _ = do(t, app, http.MethodPost, "/api/chat", map[string]any{"user_id": "u1", "message": "hello"})
	require.Equal(t, http.StatusOK, status)

	status, _ = do(t, app, http.MethodPost, "/api/clear", map[string]any{"user_id": "u1"})
	require.Equal(t, http.StatusOK, status)

	status, body := do(t, app, http.MethodGet, "/api/memory?user_id=u1", nil)
	require.Equal(t, http.StatusOK, status)
	summary := body["summary"].(map[string]any)
	assert.EqualValues(t, 0, summary["message_count"])
	assert.EqualValues(t, 3, summary["holding_count"])
	assert.EqualValues(t, 100000, summary["portfolio_value"])
	assert.Equal(t, "moderate", summary["preferences"].(map[string]any)["risk_level"])
}

func TestMemoryRequiresUser(t *testing.T) {
	app := setupApp(t, llm.NewDemo(), nil)

	status, _ := do(t, app, http.MethodGet, "/api/memory", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, app, http.MethodPost, "/api/portfolio", map[string]any{
		"user_id":   "u1",
		"portfolio": []map[string]any{{"symbol": "X", "value": -5}},
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRiskAssessment(t *testing.T) {
	app := setupApp(t, llm.NewDemo(), nil)

	returns := []float64{0.01, -0.02, 0.015, 0.003, -0.01, 0.02, 0.005, -0.004, 0.012, -0.015,
		0.008, 0.002, -0.006, 0.011, 0.004, -0.009, 0.007, 0.013, -0.003, 0.006}
	status, body := do(t, app, http.MethodPost, "/api/risk-assessment", map[string]any{
		"portfolio": samplePortfolio,
		"returns":   returns,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body["summary"], "## Portfolio Risk")
	report := body["metrics"].(map[string]any)
	assert.EqualValues(t, len(returns), report["observations"])
}

func TestRiskAssessmentErrors(t *testing.T) {
	app := setupApp(t, llm.NewDemo(), nil)

	status, body := do(t, app, http.MethodPost, "/api/risk-assessment", map[string]any{"portfolio": samplePortfolio})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "Insufficient data", body["error"])

	status, _ = do(t, app, http.MethodPost, "/api/risk-assessment", map[string]any{
		"portfolio":        samplePortfolio,
		"returns":          []float64{0.01, 0.02, 0.03},
		"confidence_level": 1.5,
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, app, http.MethodPost, "/api/risk-assessment", map[string]any{"returns": []float64{0.01}})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRiskAssessmentFromMarketData(t *testing.T) {
	closes := []float64{100, 101, 99, 102, 103, 101, 104, 105, 103, 106, 107}
	cache := services.NewCacheService(nil, time.Hour, zerolog.Nop())
	t.Cleanup(cache.Close)
	md := services.NewMarketDataService(cache, 2, nil, zerolog.Nop(), staticSource{closes: closes})
	app := setupApp(t, llm.NewDemo(), md)

	status, body := do(t, app, http.MethodPost, "/api/risk-assessment", map[string]any{"portfolio": samplePortfolio})
	require.Equal(t, http.StatusOK, status)
	report := body["metrics"].(map[string]any)
	assert.EqualValues(t, len(closes)-1, report["observations"])

	status, body = do(t, app, http.MethodGet, "/api/returns/vti?days=5", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "VTI", body["symbol"])

	status, body = do(t, app, http.MethodPost, "/api/admin/refresh", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Cache refreshed successfully", body["message"])
}

func TestReturnsWithoutMarketData(t *testing.T) {
	app := setupApp(t, llm.NewDemo(), nil)

	status, _ := do(t, app, http.MethodGet, "/api/returns/VTI", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = do(t, app, http.MethodGet, "/api/returns/VTI?days=-1", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestDiversification(t *testing.T) {
	app := setupApp(t, llm.NewDemo(), nil)

	status, body := do(t, app, http.MethodPost, "/api/diversification", map[string]any{"portfolio": samplePortfolio})
	require.Equal(t, http.StatusOK, status)
	analysis := body["analysis"].(map[string]any)
	assert.NotNil(t, analysis["score"])
	assert.NotEmpty(t, body["recommendations"])

	status, _ = do(t, app, http.MethodPost, "/api/diversification", map[string]any{
		"portfolio":  samplePortfolio,
		"thresholds": map[string]any{"bogus": 0.5},
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRebalance(t *testing.T) {
	app := setupApp(t, llm.NewDemo(), nil)

	status, body := do(t, app, http.MethodPost, "/api/rebalance", map[string]any{
		"portfolio":         samplePortfolio,
		"target_allocation": map[string]any{"equity": 0.5, "bond": 0.5},
	})
	require.Equal(t, http.StatusOK, status)
	trades := body["trades"].([]any)
	require.Len(t, trades, 2)
	assert.Contains(t, body["summary"], "## Rebalancing")

	status, _ = do(t, app, http.MethodPost, "/api/rebalance", map[string]any{
		"portfolio":         samplePortfolio,
		"target_allocation": map[string]any{"equity": 0.5, "bond": 0.2},
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRiskToleranceAndStrategy(t *testing.T) {
	app := setupApp(t, llm.NewDemo(), nil)

	status, body := do(t, app, http.MethodPost, "/api/risk-tolerance", map[string]any{
		"age": 30, "time_horizon": 30, "loss_reaction": "buy_more", "goal": "aggressive_growth",
	})
	require.Equal(t, http.StatusOK, status)
	profile := body["profile"].(map[string]any)
	level, _ := profile["risk_level"].(string)

	status, body = do(t, app, http.MethodPost, "/api/strategy", map[string]any{
		"risk_profile":            level,
		"goals":                   []map[string]any{{"goal_type": "retirement", "target_amount": 500000, "years": 30}},
		"current_portfolio_value": 10000,
		"monthly_contribution":    500,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body["summary"], "## Investment Strategy")

	status, _ = do(t, app, http.MethodPost, "/api/risk-tolerance", map[string]any{"age": 200})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestStatusFor(t *testing.T) {
	code, _ := statusFor(fiber.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = statusFor(context.DeadlineExceeded)
	assert.Equal(t, http.StatusGatewayTimeout, code)
	code, _ = statusFor(io.EOF)
	assert.Equal(t, http.StatusInternalServerError, code)
}
