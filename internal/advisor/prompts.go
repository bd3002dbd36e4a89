package advisor

import (
	"fmt"
	"sort"
	"strings"

	"wealth-go-api/internal/format"
	"wealth-go-api/internal/models"
)

const systemPrompt = `You are WealthAdvisor, a financial assistant for wealth management and investing.

You can:
1. Measure portfolio risk (value at risk, Sharpe ratio, volatility, maximum drawdown) with calculate_portfolio_risk.
2. Score an investor's risk tolerance with assess_risk_tolerance.
3. Check diversification across asset classes, sectors and geographies with analyze_diversification.
4. Propose rebalancing trades with suggest_rebalancing.
5. Design an allocation and savings plan for goals with design_investment_strategy.

Rules:
- Use the tools for every number you quote. Never compute metrics yourself.
- When portfolio data is incomplete, state the assumptions you make.
- Give concrete recommendations and explain the reasoning in plain language.
- Never present an investment as a guaranteed winner. Past performance does not guarantee future results.
- Answer in markdown.

Watch for single positions above 20% of the portfolio, asset class imbalances, geographic and sector concentration, and risk that does not match the user's goals.`

// userContext describes what is remembered about the user, or "" when
// nothing is.
func userContext(p models.UserProfile) string {
	if len(p.Preferences) == 0 && len(p.Portfolio) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("What you know about this user:\n")
	if len(p.Preferences) > 0 {
		keys := make([]string, 0, len(p.Preferences))
		for k := range p.Preferences {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %v\n", format.Title(k), p.Preferences[k])
		}
	}
	if len(p.Portfolio) > 0 {
		total := models.Portfolio{Holdings: p.Portfolio}.TotalValue()
		fmt.Fprintf(&b, "- Saved portfolio: %d holdings worth %s. Tools use it when called without a portfolio.\n", len(p.Portfolio), format.Money(total))
	}
	return b.String()
}

func buildSystemPrompt(p models.UserProfile) string {
	if ctx := userContext(p); ctx != "" {
		return systemPrompt + "\n\n" + ctx
	}
	return systemPrompt
}
