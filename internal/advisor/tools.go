package advisor

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"wealth-go-api/internal/format"
	"wealth-go-api/internal/llm"
	"wealth-go-api/internal/metrics"
	"wealth-go-api/internal/models"
	"wealth-go-api/internal/planning"
	"wealth-go-api/internal/services"
)

// tool adapts a function to llm.Tool and counts its calls.
type tool struct {
	decl    *genai.FunctionDeclaration
	call    func(ctx context.Context, args map[string]any) (string, error)
	metrics *metrics.Metrics
}

func (t *tool) Declaration() *genai.FunctionDeclaration { return t.decl }

func (t *tool) Call(ctx context.Context, args map[string]any) (string, error) {
	out, err := t.call(ctx, args)
	t.metrics.IncTool(t.decl.Name, err)
	return out, err
}

// decodeArgs maps loosely typed model arguments onto v.
func decodeArgs(args map[string]any, v any) error {
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

type userKey struct{}

func withUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

var holdingSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"symbol":      {Type: genai.TypeString, Description: "Ticker symbol, e.g. VTI."},
		"name":        {Type: genai.TypeString},
		"value":       {Type: genai.TypeNumber, Description: "Market value in USD, greater than zero."},
		"asset_class": {Type: genai.TypeString, Description: "equity, bond, cash, real_estate, commodity or crypto."},
		"sector":      {Type: genai.TypeString},
		"geography":   {Type: genai.TypeString, Description: "Country or region, e.g. US."},
	},
	Required: []string{"symbol", "value"},
}

var portfolioSchema = &genai.Schema{
	Type:        genai.TypeArray,
	Description: "Holdings. Omit to use the portfolio the user saved.",
	Items:       holdingSchema,
}

// Tools builds the advisor's function library over the analysis service.
// Portfolio arguments fall back to the portfolio saved in memory.
func Tools(analysis *services.AnalysisService, memory *services.MemoryService, m *metrics.Metrics) []llm.Tool {
	portfolio := func(ctx context.Context, given []models.Holding) []models.Holding {
		if len(given) > 0 || memory == nil {
			return given
		}
		userID, _ := ctx.Value(userKey{}).(string)
		if userID == "" {
			return given
		}
		p, err := memory.Profile(ctx, userID)
		if err != nil {
			return given
		}
		return p.Portfolio
	}

	return []llm.Tool{
		&tool{
			metrics: m,
			decl: &genai.FunctionDeclaration{
				Name:        "calculate_portfolio_risk",
				Description: "Compute value at risk, Sharpe ratio, annualized volatility and maximum drawdown of a portfolio from its periodic returns. Without returns, daily market prices are used.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"portfolio":        portfolioSchema,
						"returns":          {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeNumber}, Description: "Periodic portfolio returns as decimal fractions, oldest first."},
						"confidence_level": {Type: genai.TypeNumber, Description: "VaR confidence in (0, 1), default 0.95."},
						"periods_per_year": {Type: genai.TypeInteger, Description: "Return periods per year: 252 daily, 52 weekly, 12 monthly."},
						"lookback_days":    {Type: genai.TypeInteger, Description: "Days of market history when returns are omitted."},
					},
				},
			},
			call: func(ctx context.Context, args map[string]any) (string, error) {
				var req models.RiskRequest
				if err := decodeArgs(args, &req); err != nil {
					return "", err
				}
				req.Portfolio = portfolio(ctx, req.Portfolio)
				report, err := analysis.Risk(ctx, req)
				if err != nil {
					return "", err
				}
				return format.RiskSummary(report), nil
			},
		},
		&tool{
			metrics: m,
			decl: &genai.FunctionDeclaration{
				Name:        "assess_risk_tolerance",
				Description: "Score the user's risk tolerance from a questionnaire and suggest an equity/bond split.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"age":                   {Type: genai.TypeInteger},
						"income":                {Type: genai.TypeNumber},
						"investment_experience": {Type: genai.TypeString, Enum: []string{"none", "beginner", "intermediate", "advanced"}},
						"time_horizon":          {Type: genai.TypeInteger, Description: "Years until the money is needed."},
						"loss_reaction":         {Type: genai.TypeString, Description: "Reaction to a 20% drop.", Enum: []string{"sell_all", "sell_some", "hold", "buy_more"}},
						"goal":                  {Type: genai.TypeString, Enum: []string{"preservation", "income", "growth", "aggressive_growth"}},
					},
				},
			},
			call: func(ctx context.Context, args map[string]any) (string, error) {
				var q planning.Questionnaire
				if err := decodeArgs(args, &q); err != nil {
					return "", err
				}
				profile, err := analysis.RiskTolerance(q)
				if err != nil {
					return "", err
				}
				return format.RiskProfileSummary(profile), nil
			},
		},
		&tool{
			metrics: m,
			decl: &genai.FunctionDeclaration{
				Name:        "analyze_diversification",
				Description: "Break a portfolio down by asset class, sector and geography, flag concentrations and score diversification from 0 to 1.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"portfolio": portfolioSchema,
					},
				},
			},
			call: func(ctx context.Context, args map[string]any) (string, error) {
				var req models.DiversificationRequest
				if err := decodeArgs(args, &req); err != nil {
					return "", err
				}
				report, recs, err := analysis.Diversification(portfolio(ctx, req.Portfolio), req.Thresholds)
				if err != nil {
					return "", err
				}
				return format.DiversificationSummary(report, recs), nil
			},
		},
		&tool{
			metrics: m,
			decl: &genai.FunctionDeclaration{
				Name:        "suggest_rebalancing",
				Description: "List buy and sell trades moving each asset class to a target weight. Defaults to 60% equity, 25% bond and 5% each of cash, real estate and commodities.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"portfolio": portfolioSchema,
						"target_allocation": {
							Type:        genai.TypeObject,
							Description: "Target weight per asset class, summing to 1. Omit for the default allocation.",
							Properties: map[string]*genai.Schema{
								"equity":      {Type: genai.TypeNumber},
								"bond":        {Type: genai.TypeNumber},
								"cash":        {Type: genai.TypeNumber},
								"real_estate": {Type: genai.TypeNumber},
								"commodity":   {Type: genai.TypeNumber},
								"crypto":      {Type: genai.TypeNumber},
							},
						},
					},
				},
			},
			call: func(ctx context.Context, args map[string]any) (string, error) {
				var req models.RebalanceRequest
				if err := decodeArgs(args, &req); err != nil {
					return "", err
				}
				trades, err := analysis.Rebalance(portfolio(ctx, req.Portfolio), req.TargetAllocation)
				if err != nil {
					return "", err
				}
				return format.RebalanceSummary(trades), nil
			},
		},
		&tool{
			metrics: m,
			decl: &genai.FunctionDeclaration{
				Name:        "design_investment_strategy",
				Description: "Design an allocation, monthly savings plan and action items for a risk profile and a list of goals.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"risk_profile": {Type: genai.TypeString, Enum: []string{"conservative", "moderate", "aggressive", "very_aggressive"}},
						"goals": {
							Type: genai.TypeArray,
							Items: &genai.Schema{
								Type: genai.TypeObject,
								Properties: map[string]*genai.Schema{
									"goal_type":     {Type: genai.TypeString, Enum: []string{"retirement", "education", "home_purchase", "wealth_building", "income_generation", "emergency_fund"}},
									"target_amount": {Type: genai.TypeNumber},
									"years":         {Type: genai.TypeInteger},
								},
							},
						},
						"current_portfolio_value": {Type: genai.TypeNumber},
						"monthly_contribution":    {Type: genai.TypeNumber},
					},
					Required: []string{"risk_profile"},
				},
			},
			call: func(ctx context.Context, args map[string]any) (string, error) {
				var req planning.StrategyRequest
				if err := decodeArgs(args, &req); err != nil {
					return "", err
				}
				plan, err := analysis.Strategy(req)
				if err != nil {
					return "", err
				}
				return format.StrategySummary(plan), nil
			},
		},
	}
}
