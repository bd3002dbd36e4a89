package analytics

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// ReturnsFromPrices turns a price series (oldest first) into simple
// periodic returns p[t]/p[t-1] - 1.
func ReturnsFromPrices(prices []float64) ([]float64, error) {
	const op = "returns_from_prices"
	if len(prices) < 2 {
		return nil, NewError(KindInsufficientData, op, "need at least 2 prices, got %d", len(prices))
	}
	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev, cur := prices[i-1], prices[i]
		if !(prev > 0) || !(cur > 0) || math.IsInf(prev, 0) || math.IsInf(cur, 0) {
			return nil, NewError(KindInvalidInput, op, "price at %d must be positive and finite", i)
		}
		returns[i-1] = cur/prev - 1
	}
	return returns, nil
}

// DatedPrices is a close series keyed by trading day, oldest first.
type DatedPrices struct {
	Dates  []time.Time
	Closes []float64
}

func dayKey(d time.Time) string {
	return d.UTC().Format(time.DateOnly)
}

// CombineReturns joins several close series on the trading days they all
// share and returns the weighted sum of their returns over those days. A day
// missing from any series is dropped for all of them, so each return spans
// the same interval in every series. Weights must be non-negative and sum
// to 1.
func CombineReturns(series []DatedPrices, weights []float64) ([]float64, error) {
	const op = "combine_returns"
	if len(series) == 0 || len(series) != len(weights) {
		return nil, NewError(KindInvalidInput, op, "got %d series for %d weights", len(series), len(weights))
	}
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) {
			return nil, NewError(KindInvalidInput, op, "weight %d must not be negative", i)
		}
	}
	if sum := floats.Sum(weights); math.Abs(sum-1) > 1e-9 {
		return nil, NewError(KindInvalidInput, op, "weights sum to %v, want 1", sum)
	}

	// count how many series carry each day
	seen := make(map[string]int)
	closes := make([]map[string]float64, len(series))
	for i, s := range series {
		if len(s.Dates) != len(s.Closes) {
			return nil, NewError(KindInvalidInput, op, "series %d has %d dates for %d closes", i, len(s.Dates), len(s.Closes))
		}
		closes[i] = make(map[string]float64, len(s.Closes))
		for j, d := range s.Dates {
			if j > 0 && !d.After(s.Dates[j-1]) {
				return nil, NewError(KindInvalidInput, op, "series %d dates must be strictly increasing", i)
			}
			k := dayKey(d)
			closes[i][k] = s.Closes[j]
			seen[k]++
		}
	}

	var common []string
	for _, d := range series[0].Dates {
		if k := dayKey(d); seen[k] == len(series) {
			common = append(common, k)
		}
	}
	if len(common) < 2 {
		return nil, NewError(KindInsufficientData, op, "series share %d trading days, need at least 2", len(common))
	}

	combined := make([]float64, len(common)-1)
	aligned := make([]float64, len(common))
	for i := range series {
		for j, k := range common {
			aligned[j] = closes[i][k]
		}
		r, err := ReturnsFromPrices(aligned)
		if err != nil {
			return nil, err
		}
		floats.AddScaled(combined, weights[i], r)
	}
	return combined, nil
}
