package format

import (
	"fmt"
	"sort"
	"strings"

	"wealth-go-api/internal/analytics"
	"wealth-go-api/internal/planning"
)

// RiskSummary renders a risk report.
func RiskSummary(r analytics.RiskReport) string {
	var b strings.Builder
	b.WriteString("## Portfolio Risk\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Value at Risk (%s, 1 period) | %s |\n", Percent(r.Params.ConfidenceLevel), Money(r.ValueAtRisk))
	fmt.Fprintf(&b, "| Annualized volatility | %s |\n", Percent(r.Volatility))
	fmt.Fprintf(&b, "| Sharpe ratio (per period) | %s |\n", ratio(r.SharpeRatio))
	fmt.Fprintf(&b, "| Sharpe ratio (annualized) | %s |\n", ratio(r.AnnualizedSharpe))
	fmt.Fprintf(&b, "| Maximum drawdown | %s |\n", Percent(r.MaxDrawdown))
	fmt.Fprintf(&b, "| Observations | %d |\n", r.Observations)

	b.WriteString("\n")
	b.WriteString(riskLabel(r.Volatility))
	b.WriteString("\n")

	if len(r.Warnings) > 0 {
		b.WriteString("\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "> %s\n", w)
		}
	}
	return b.String()
}

func riskLabel(vol float64) string {
	switch {
	case vol < 0.10:
		return "Overall risk is **low**."
	case vol < 0.20:
		return "Overall risk is **moderate**."
	case vol < 0.30:
		return "Overall risk is **high**."
	default:
		return "Overall risk is **very high**."
	}
}

var recommendationText = map[string]string{
	analytics.RecAddAssetClasses:      "Add more asset classes (bonds, real estate, commodities) to spread risk.",
	analytics.RecReduceEquity:         "Equity is %s of the portfolio. Consider adding bonds to cushion drawdowns.",
	analytics.RecDeployCash:           "Cash is %s of the portfolio. Consider investing part of it.",
	analytics.RecAddInternational:     "Add international exposure to reduce single-country risk.",
	analytics.RecTrimLargestPositions: "%s is %s of the portfolio. Consider trimming it.",
	analytics.RecReduceTechnology:     "Technology is %s of the portfolio. Consider adding other sectors.",
	analytics.RecWellDiversified:      "The portfolio is well diversified. Keep rebalancing periodically.",
}

// RecommendationText renders one recommendation as a sentence.
func RecommendationText(r analytics.Recommendation) string {
	tmpl, ok := recommendationText[r.Code]
	if !ok {
		return r.Code
	}
	switch r.Code {
	case analytics.RecTrimLargestPositions:
		return fmt.Sprintf(tmpl, r.Group, Percent(r.Weight))
	case analytics.RecReduceEquity, analytics.RecDeployCash, analytics.RecReduceTechnology:
		return fmt.Sprintf(tmpl, Percent(r.Weight))
	}
	return tmpl
}

// DiversificationSummary renders a diversification report and its
// recommendations.
func DiversificationSummary(r analytics.DiversificationReport, recs []analytics.Recommendation) string {
	var b strings.Builder
	b.WriteString("## Diversification\n\n")
	fmt.Fprintf(&b, "Score: **%.2f** / 1.00, total value %s, concentration %s.\n", r.Score, Money(r.TotalValue), r.Concentration)

	for _, section := range []struct {
		title  string
		groups map[string]float64
	}{
		{"Asset classes", r.ByAssetClass},
		{"Sectors", r.BySector},
		{"Geography", r.ByGeography},
	} {
		fmt.Fprintf(&b, "\n### %s\n\n", section.title)
		for _, g := range byWeight(section.groups) {
			fmt.Fprintf(&b, "- %s: %s\n", Title(g), Percent(section.groups[g]))
		}
	}

	if len(r.ConcentrationFlags) > 0 {
		b.WriteString("\n### Concentration warnings\n\n")
		for _, f := range r.ConcentrationFlags {
			fmt.Fprintf(&b, "- %s **%s** at %s (limit %s)\n", Title(string(f.Dimension)), f.Group, Percent(f.Weight), Percent(f.Threshold))
		}
	}

	if len(recs) > 0 {
		b.WriteString("\n### Recommendations\n\n")
		for _, rec := range recs {
			fmt.Fprintf(&b, "- %s\n", RecommendationText(rec))
		}
	}
	return b.String()
}

// RebalanceSummary renders suggested trades.
func RebalanceSummary(trades []analytics.Trade) string {
	if len(trades) == 0 {
		return "## Rebalancing\n\nThe portfolio is within 2% of its target allocation. No trades needed.\n"
	}
	var b strings.Builder
	b.WriteString("## Rebalancing\n\n")
	b.WriteString("| Action | Asset class | Amount | Current | Target |\n|---|---|---|---|---|\n")
	for _, t := range trades {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			strings.ToUpper(string(t.Action)), Title(t.AssetClass), Money(t.Amount), Percent(t.CurrentWeight), Percent(t.TargetWeight))
	}
	return b.String()
}

// RiskProfileSummary renders a scored questionnaire.
func RiskProfileSummary(p planning.RiskProfile) string {
	var b strings.Builder
	b.WriteString("## Risk Tolerance\n\n")
	fmt.Fprintf(&b, "Profile: **%s** (score %d/100)\n\n", Title(string(p.Level)), p.Score)
	b.WriteString("Suggested split:\n\n")
	fmt.Fprintf(&b, "- Equity: %s\n", Percent(p.EquityAllocation))
	fmt.Fprintf(&b, "- Bonds: %s\n", Percent(p.BondAllocation))
	fmt.Fprintf(&b, "- Cash and alternatives: %s\n", Percent(p.CashAllocation))
	fmt.Fprintf(&b, "\nTime horizon: %d years\n", p.TimeHorizonYears)
	return b.String()
}

// StrategySummary renders an investment plan.
func StrategySummary(p planning.InvestmentPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Investment Strategy: %s\n\n", p.StrategyName)
	fmt.Fprintf(&b, "Profile: **%s**, horizon %d years, expected return %s a year.\n", Title(string(p.RiskProfile)), p.HorizonYears, Percent(p.ExpectedReturn))

	b.WriteString("\n### Allocation\n\n")
	for _, class := range byWeight(p.RecommendedAllocation) {
		fmt.Fprintf(&b, "- %s: %s\n", Title(class), Percent(p.RecommendedAllocation[class]))
	}

	b.WriteString("\n### Projections\n\n")
	fmt.Fprintf(&b, "- Monthly savings needed: %s\n", Money(p.MonthlySavingsNeeded))
	fmt.Fprintf(&b, "- Planned contribution: %s\n", Money(p.MonthlyContribution))
	fmt.Fprintf(&b, "- Projected value: %s\n", Money(p.ProjectedValue))

	if len(p.Suggestions) > 0 {
		b.WriteString("\n### Suggested investments\n\n")
		for _, s := range p.Suggestions {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", s.Name, s.Ticker, Percent(s.Allocation))
		}
	}

	b.WriteString("\n### Action items\n\n")
	for i, item := range p.ActionItems {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	return b.String()
}

func byWeight(groups map[string]float64) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if groups[keys[i]] != groups[keys[j]] {
			return groups[keys[i]] > groups[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

func ratio(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}
