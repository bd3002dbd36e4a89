package llm

import (
	"context"
	"strings"
)

// Demo answers without any model: it routes keywords to a tool called with a
// sample portfolio. It is the fallback when no API key is configured.
type Demo struct{}

func NewDemo() *Demo { return &Demo{} }

func (d *Demo) Name() string { return "demo" }

var demoPortfolio = []any{
	map[string]any{"symbol": "VTI", "value": 50000.0, "asset_class": "equity", "sector": "diversified", "geography": "US"},
	map[string]any{"symbol": "BND", "value": 20000.0, "asset_class": "bond", "sector": "bonds", "geography": "US"},
	map[string]any{"symbol": "AAPL", "value": 15000.0, "asset_class": "equity", "sector": "technology", "geography": "US"},
}

// twelve monthly portfolio returns
var demoReturns = []any{0.021, -0.013, 0.034, 0.008, -0.042, 0.017, 0.025, -0.006, 0.011, -0.019, 0.029, 0.004}

type demoRoute struct {
	tool string
	args map[string]any
	// match reports whether the lowercased input selects this route
	match func(string) bool
}

var demoRoutes = []demoRoute{
	{
		tool:  "assess_risk_tolerance",
		args:  map[string]any{"age": 35.0, "time_horizon": 20.0, "loss_reaction": "hold", "goal": "growth"},
		match: func(s string) bool { return strings.Contains(s, "risk") && (strings.Contains(s, "assess") || strings.Contains(s, "tolerance")) },
	},
	{
		tool:  "analyze_diversification",
		args:  map[string]any{"portfolio": demoPortfolio},
		match: func(s string) bool { return strings.Contains(s, "diversif") },
	},
	{
		tool: "design_investment_strategy",
		args: map[string]any{
			"risk_profile":            "moderate",
			"goals":                   []any{map[string]any{"goal_type": "retirement", "target_amount": 1000000.0, "years": 25.0}},
			"current_portfolio_value": 50000.0,
			"monthly_contribution":    1000.0,
		},
		match: func(s string) bool { return strings.Contains(s, "strateg") },
	},
	{
		tool:  "suggest_rebalancing",
		args:  map[string]any{"portfolio": demoPortfolio},
		match: func(s string) bool { return strings.Contains(s, "rebalanc") },
	},
	{
		tool:  "calculate_portfolio_risk",
		args:  map[string]any{"portfolio": demoPortfolio, "returns": demoReturns, "periods_per_year": 12.0},
		match: func(s string) bool { return strings.Contains(s, "risk") },
	},
}

const demoGreeting = `Hello! I'm your wealth management assistant, running in demo mode with a sample portfolio.

I can help you with:

- **Portfolio risk**: value at risk, Sharpe ratio, volatility and drawdown
- **Risk tolerance**: your investor profile
- **Diversification**: concentration by asset class, sector and geography
- **Investment strategy**: an allocation and savings plan for your goals
- **Rebalancing**: trades to reach a target allocation

Try asking "Assess my risk tolerance" or "Analyze my portfolio diversification".
`

func (d *Demo) Complete(ctx context.Context, req Request) (*Response, error) {
	input := strings.ToLower(req.Input)
	for _, route := range demoRoutes {
		if !route.match(input) {
			continue
		}
		result, call := dispatch(ctx, req.Tools, route.tool, route.args)
		if call.Error != "" {
			// tool missing or failing: greet instead of surfacing raw JSON
			break
		}
		return &Response{Text: result, ToolCalls: []ToolCall{call}}, nil
	}
	return &Response{Text: demoGreeting}, nil
}
