package planning

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"wealth-go-api/internal/analytics"
)

// GoalType is what a goal is saving for
type GoalType string

const (
	GoalRetirement       GoalType = "retirement"
	GoalEducation        GoalType = "education"
	GoalHomePurchase     GoalType = "home_purchase"
	GoalWealthBuilding   GoalType = "wealth_building"
	GoalIncomeGeneration GoalType = "income_generation"
	GoalEmergencyFund    GoalType = "emergency_fund"
)

func (g GoalType) valid() bool {
	switch g {
	case GoalRetirement, GoalEducation, GoalHomePurchase, GoalWealthBuilding, GoalIncomeGeneration, GoalEmergencyFund:
		return true
	}
	return false
}

type Goal struct {
	Type           GoalType `json:"goal_type"`
	TargetAmount   float64  `json:"target_amount"`
	Years          int      `json:"years"`
	CurrentSavings float64  `json:"current_savings,omitempty"`
}

// StrategyRequest is the input of DesignStrategy
type StrategyRequest struct {
	RiskProfile           string  `json:"risk_profile"`
	Goals                 []Goal  `json:"goals"`
	CurrentPortfolioValue float64 `json:"current_portfolio_value"`
	MonthlyContribution   float64 `json:"monthly_contribution"`
}

// Suggestion is one fund proposed for an asset class.
type Suggestion struct {
	Name       string  `json:"name"`
	Ticker     string  `json:"ticker"`
	Type       string  `json:"type"`
	AssetClass string  `json:"asset_class"`
	Allocation float64 `json:"allocation"`
	Amount     float64 `json:"amount"`
}

// ProjectionPoint is the projected balance at the end of a year
type ProjectionPoint struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// InvestmentPlan is a strategy tailored to a risk level and a set of goals.
type InvestmentPlan struct {
	StrategyName          string             `json:"strategy_name"`
	RiskProfile           RiskLevel          `json:"risk_profile"`
	Goals                 []Goal             `json:"goals"`
	RecommendedAllocation map[string]float64 `json:"recommended_allocation"`
	ExpectedReturn        float64            `json:"expected_return"`
	HorizonYears          int                `json:"horizon_years"`
	MonthlySavingsNeeded  float64            `json:"monthly_savings_needed"`
	MonthlyContribution   float64            `json:"monthly_contribution"`
	ProjectedValue        float64            `json:"projected_value"`
	Projection            []ProjectionPoint  `json:"projection"`
	Suggestions           []Suggestion       `json:"portfolio_suggestions"`
	ActionItems           []string           `json:"action_items"`
}

type template struct {
	name           string
	allocation     map[string]float64
	expectedReturn float64
}

var templates = map[RiskLevel]template{
	Conservative: {
		name:           "Capital Preservation",
		allocation:     map[string]float64{"equity": 0.25, "bond": 0.50, "cash": 0.15, "real_estate": 0.10},
		expectedReturn: 0.05,
	},
	Moderate: {
		name:           "Balanced Growth",
		allocation:     map[string]float64{"equity": 0.50, "bond": 0.30, "real_estate": 0.10, "cash": 0.05, "commodity": 0.05},
		expectedReturn: 0.07,
	},
	Aggressive: {
		name:           "Growth Focus",
		allocation:     map[string]float64{"equity": 0.70, "bond": 0.15, "real_estate": 0.10, "commodity": 0.05},
		expectedReturn: 0.09,
	},
	VeryAggressive: {
		name:           "Maximum Growth",
		allocation:     map[string]float64{"equity": 0.85, "bond": 0.05, "real_estate": 0.05, "crypto": 0.05},
		expectedReturn: 0.11,
	},
}

var funds = map[string]Suggestion{
	"equity":      {Name: "Total Stock Market ETF", Ticker: "VTI", Type: "US Equity"},
	"bond":        {Name: "Total Bond Market ETF", Ticker: "BND", Type: "US Bonds"},
	"real_estate": {Name: "Real Estate ETF", Ticker: "VNQ", Type: "REIT"},
	"commodity":   {Name: "Gold ETF", Ticker: "GLD", Type: "Gold"},
	"cash":        {Name: "Money Market Fund", Ticker: "VMFXX", Type: "Cash"},
	"crypto":      {Name: "Bitcoin ETF", Ticker: "IBIT", Type: "Bitcoin"},
}

const (
	defaultGoalAmount = 500000
	defaultGoalYears  = 20
	shortHorizonYears = 5
)

// DesignStrategy builds an investment plan from a risk level and goals.
//
// The horizon is the nearest goal. Horizons under five years tilt the
// template away from equity. The monthly savings needed is the annuity
// payment that closes the gap between the summed goal targets and the
// grown current value, at the template's expected return.
func DesignStrategy(req StrategyRequest) (InvestmentPlan, error) {
	const op = "design_strategy"
	if req.CurrentPortfolioValue < 0 || math.IsNaN(req.CurrentPortfolioValue) {
		return InvestmentPlan{}, analytics.NewError(analytics.KindInvalidInput, op, "current portfolio value must not be negative")
	}
	if req.MonthlyContribution < 0 || math.IsNaN(req.MonthlyContribution) {
		return InvestmentPlan{}, analytics.NewError(analytics.KindInvalidInput, op, "monthly contribution must not be negative")
	}

	level := ParseRiskLevel(req.RiskProfile)
	tmpl := templates[level]

	goals := make([]Goal, 0, len(req.Goals))
	total := 0.0
	years := 30
	for i, g := range req.Goals {
		if g.Type == "" {
			g.Type = GoalWealthBuilding
		}
		g.Type = GoalType(normalize(string(g.Type)))
		if !g.Type.valid() {
			return InvestmentPlan{}, analytics.NewError(analytics.KindInvalidInput, op, "goal %d: unknown goal type %q", i, g.Type)
		}
		if g.TargetAmount == 0 {
			g.TargetAmount = 100000
		}
		if g.Years == 0 {
			g.Years = 10
		}
		if g.TargetAmount < 0 || g.Years < 0 {
			return InvestmentPlan{}, analytics.NewError(analytics.KindInvalidInput, op, "goal %d: target and years must be positive", i)
		}
		goals = append(goals, g)
		total += g.TargetAmount
		years = min(years, g.Years)
	}
	if len(goals) == 0 {
		goals = []Goal{{Type: GoalWealthBuilding, TargetAmount: defaultGoalAmount, Years: defaultGoalYears}}
		total = defaultGoalAmount
		years = defaultGoalYears
	}

	allocation := make(map[string]float64, len(tmpl.allocation)+1)
	for k, v := range tmpl.allocation {
		allocation[k] = v
	}
	if years < shortHorizonYears {
		allocation["equity"] = math.Max(0.20, allocation["equity"]-0.20)
		allocation["bond"] += 0.15
		allocation["cash"] += 0.05
	}
	normalizeAllocation(allocation)

	months := years * 12
	r := tmpl.expectedReturn / 12
	needed := monthlySavingsNeeded(total, req.CurrentPortfolioValue, r, months)

	contribution := math.Max(req.MonthlyContribution, needed)
	projected := req.CurrentPortfolioValue
	var projection []ProjectionPoint
	for m := 1; m <= months; m++ {
		projected = projected*(1+r) + contribution
		if m%12 == 0 {
			projection = append(projection, ProjectionPoint{Year: m / 12, Value: round(projected, 2)})
		}
	}

	plan := InvestmentPlan{
		StrategyName:          tmpl.name,
		RiskProfile:           level,
		Goals:                 goals,
		RecommendedAllocation: allocation,
		ExpectedReturn:        tmpl.expectedReturn,
		HorizonYears:          years,
		MonthlySavingsNeeded:  round(needed, 2),
		MonthlyContribution:   round(contribution, 2),
		ProjectedValue:        round(projected, 2),
		Projection:            projection,
	}

	for _, class := range sortedClasses(allocation) {
		f, ok := funds[class]
		if !ok || allocation[class] <= 0 {
			continue
		}
		f.AssetClass = class
		f.Allocation = allocation[class]
		f.Amount = round(projected*allocation[class], 2)
		plan.Suggestions = append(plan.Suggestions, f)
	}

	plan.ActionItems = actionItems(req.CurrentPortfolioValue, contribution, allocation, goals)
	return plan, nil
}

func monthlySavingsNeeded(target, current, r float64, months int) float64 {
	if months <= 0 || r <= 0 {
		return target / (defaultGoalYears * 12)
	}
	growth := math.Pow(1+r, float64(months))
	remaining := math.Max(0, target-current*growth)
	return remaining * r / (growth - 1)
}

func normalizeAllocation(a map[string]float64) {
	sum := 0.0
	for _, v := range a {
		sum += v
	}
	for k, v := range a {
		a[k] = round(v/sum, 4)
	}
}

// sortedClasses orders by allocation descending, then name.
func sortedClasses(a map[string]float64) []string {
	classes := make([]string, 0, len(a))
	for k := range a {
		classes = append(classes, k)
	}
	sort.Slice(classes, func(i, j int) bool {
		if a[classes[i]] != a[classes[j]] {
			return a[classes[i]] > a[classes[j]]
		}
		return classes[i] < classes[j]
	})
	return classes
}

func actionItems(current, contribution float64, allocation map[string]float64, goals []Goal) []string {
	var items []string
	if current == 0 {
		items = append(items, "Open a brokerage account")
	}
	items = append(items, fmt.Sprintf("Set up an automatic monthly investment of %s", decimal.NewFromFloat(contribution).StringFixed(0)))
	if allocation["equity"] > 0.5 {
		items = append(items, "Hold equity in tax-advantaged accounts where possible")
	}
	items = append(items,
		"Review and rebalance the portfolio quarterly",
		"Increase contributions by 1-2% each year if possible",
	)
	for _, g := range goals {
		switch g.Type {
		case GoalRetirement:
			items = appendOnce(items, "Take the full employer retirement match if available")
		case GoalEmergencyFund:
			items = appendOnce(items, "Keep 3-6 months of expenses in a high-yield savings account")
		}
	}
	return items
}

func appendOnce(items []string, s string) []string {
	for _, it := range items {
		if strings.EqualFold(it, s) {
			return items
		}
	}
	return append(items, s)
}

func round(f float64, places int32) float64 {
	return decimal.NewFromFloat(f).Round(places).InexactFloat64()
}
