package analytics

import (
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"wealth-go-api/internal/models"
)

// MinRebalanceDrift is the smallest weight gap worth a trade.
const MinRebalanceDrift = 0.02

// TradeAction is buy or sell
type TradeAction string

const (
	ActionBuy  TradeAction = "buy"
	ActionSell TradeAction = "sell"
)

// Trade is one rebalancing move at asset class level
type Trade struct {
	Action        TradeAction `json:"action"`
	AssetClass    string      `json:"asset_class"`
	Amount        float64     `json:"amount"`
	CurrentWeight float64     `json:"current_weight"`
	TargetWeight  float64     `json:"target_weight"`
}

// DefaultTargetAllocation is a balanced allocation.
func DefaultTargetAllocation() map[string]float64 {
	return map[string]float64{
		"equity":      0.60,
		"bond":        0.25,
		"cash":        0.05,
		"real_estate": 0.05,
		"commodity":   0.05,
	}
}

// SuggestRebalancing lists the trades moving each asset class to its target
// weight. Asset classes held but absent from target are sold down to zero.
// Gaps below MinRebalanceDrift are ignored. Amounts are rounded to cents.
func SuggestRebalancing(p models.Portfolio, target map[string]float64) ([]Trade, error) {
	const op = "suggest_rebalancing"
	if len(target) == 0 {
		target = DefaultTargetAllocation()
	}

	sum := 0.0
	normalized := make(map[string]float64, len(target))
	for class, w := range target {
		if math.IsNaN(w) || w < 0 || w > 1 {
			return nil, NewError(KindInvalidInput, op, "target weight for %q must be within [0, 1], got %v", class, w)
		}
		normalized[strings.ToLower(groupKey(class))] += w
		sum += w
	}
	if math.Abs(sum-1) > 1e-6 {
		return nil, NewError(KindInvalidInput, op, "target allocation sums to %v, want 1", sum)
	}

	total, err := totalValue(op, p)
	if err != nil {
		return nil, err
	}
	current := map[string]float64{}
	for _, h := range p.Holdings {
		current[strings.ToLower(groupKey(h.AssetClass))] += h.Value / total
	}

	classes := make([]string, 0, len(normalized)+len(current))
	for class := range normalized {
		classes = append(classes, class)
	}
	for class := range current {
		if _, ok := normalized[class]; !ok {
			classes = append(classes, class)
		}
	}
	sort.Strings(classes)

	var trades []Trade
	for _, class := range classes {
		diff := normalized[class] - current[class]
		if math.Abs(diff) < MinRebalanceDrift {
			continue
		}
		action := ActionBuy
		if diff < 0 {
			action = ActionSell
		}
		trades = append(trades, Trade{
			Action:        action,
			AssetClass:    class,
			Amount:        decimal.NewFromFloat(math.Abs(diff) * total).Round(2).InexactFloat64(),
			CurrentWeight: current[class],
			TargetWeight:  normalized[class],
		})
	}
	return trades, nil
}
