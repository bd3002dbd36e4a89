// Package planning turns an investor questionnaire and goals into a risk
// profile and an investment plan.
package planning

import (
	"strings"

	"wealth-go-api/internal/analytics"
)

// RiskLevel is the investor's tolerance bucket
type RiskLevel string

const (
	Conservative   RiskLevel = "conservative"
	Moderate       RiskLevel = "moderate"
	Aggressive     RiskLevel = "aggressive"
	VeryAggressive RiskLevel = "very_aggressive"
)

// ParseRiskLevel accepts "Very Aggressive", "very-aggressive" and the like.
// Unknown values fall back to Moderate.
func ParseRiskLevel(s string) RiskLevel {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	switch RiskLevel(s) {
	case Conservative, Moderate, Aggressive, VeryAggressive:
		return RiskLevel(s)
	}
	return Moderate
}

// Questionnaire holds the answers used to score risk tolerance.
// Zero values take the defaults of a 40 year old beginner with a ten year
// horizon who would hold through a loss and invests for growth.
type Questionnaire struct {
	Age                  int     `json:"age"`
	Income               float64 `json:"income,omitempty"`
	InvestmentExperience string  `json:"investment_experience"` // none, beginner, intermediate, advanced
	TimeHorizon          int     `json:"time_horizon"`          // years
	LossReaction         string  `json:"loss_reaction"`         // sell_all, sell_some, hold, buy_more
	Goal                 string  `json:"goal"`                  // preservation, income, growth, aggressive_growth
}

// RiskProfile is the scored questionnaire
type RiskProfile struct {
	Level            RiskLevel `json:"risk_level"`
	Score            int       `json:"score"`
	EquityAllocation float64   `json:"equity_allocation"`
	BondAllocation   float64   `json:"bond_allocation"`
	CashAllocation   float64   `json:"cash_alternatives_allocation"`
	TimeHorizonYears int       `json:"time_horizon_years"`
}

var (
	experienceScores = map[string]int{"none": -15, "beginner": -5, "intermediate": 5, "advanced": 15}
	reactionScores   = map[string]int{"sell_all": -25, "sell_some": -10, "hold": 5, "buy_more": 20}
	goalScores       = map[string]int{"preservation": -20, "income": -10, "growth": 10, "aggressive_growth": 25}
)

func (q Questionnaire) withDefaults() Questionnaire {
	if q.Age == 0 {
		q.Age = 40
	}
	if q.TimeHorizon == 0 {
		q.TimeHorizon = 10
	}
	if q.InvestmentExperience == "" {
		q.InvestmentExperience = "beginner"
	}
	if q.LossReaction == "" {
		q.LossReaction = "hold"
	}
	if q.Goal == "" {
		q.Goal = "growth"
	}
	return q
}

// AssessRiskTolerance scores a questionnaire from 0 to 100 starting at 50.
// Unrecognised answers leave the score unchanged.
func AssessRiskTolerance(q Questionnaire) (RiskProfile, error) {
	const op = "assess_risk_tolerance"
	if q.Age < 0 || q.Age > 130 {
		return RiskProfile{}, analytics.NewError(analytics.KindInvalidInput, op, "age %d out of range", q.Age)
	}
	if q.TimeHorizon < 0 {
		return RiskProfile{}, analytics.NewError(analytics.KindInvalidInput, op, "time horizon must not be negative, got %d", q.TimeHorizon)
	}
	q = q.withDefaults()

	score := 50

	switch {
	case q.Age < 30:
		score += 20
	case q.Age < 40:
		score += 10
	case q.Age > 65:
		score -= 25
	case q.Age > 55:
		score -= 15
	}

	switch {
	case q.TimeHorizon > 20:
		score += 15
	case q.TimeHorizon > 10:
		score += 5
	case q.TimeHorizon < 5:
		score -= 20
	}

	score += experienceScores[normalize(q.InvestmentExperience)]
	score += reactionScores[normalize(q.LossReaction)]
	score += goalScores[normalize(q.Goal)]

	score = max(0, min(100, score))

	p := RiskProfile{Score: score, TimeHorizonYears: q.TimeHorizon}
	switch {
	case score < 25:
		p.Level, p.EquityAllocation, p.BondAllocation = Conservative, 0.25, 0.55
	case score < 50:
		p.Level, p.EquityAllocation, p.BondAllocation = Moderate, 0.50, 0.35
	case score < 75:
		p.Level, p.EquityAllocation, p.BondAllocation = Aggressive, 0.70, 0.20
	default:
		p.Level, p.EquityAllocation, p.BondAllocation = VeryAggressive, 0.85, 0.10
	}
	p.CashAllocation = round(1-p.EquityAllocation-p.BondAllocation, 2)
	return p, nil
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}
