// Package analytics computes portfolio risk and diversification metrics.
//
// Every function is a pure computation over caller-supplied data: nothing is
// cached, nothing is shared, and concurrent calls need no coordination.
package analytics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"wealth-go-api/internal/models"
)

// Weight is the share of total value held by one portfolio line
type Weight struct {
	Symbol string  `json:"symbol"`
	Weight float64 `json:"weight"`
}

// ComputeWeights returns value/total for each holding, in holding order.
func ComputeWeights(p models.Portfolio) ([]Weight, error) {
	total, err := totalValue("compute_weights", p)
	if err != nil {
		return nil, err
	}

	weights := make([]Weight, len(p.Holdings))
	for i, h := range p.Holdings {
		weights[i] = Weight{Symbol: h.Symbol, Weight: h.Value / total}
	}
	return weights, nil
}

// totalValue rejects empty portfolios and non-positive lines before any
// percentage is computed.
func totalValue(op string, p models.Portfolio) (float64, error) {
	if len(p.Holdings) == 0 {
		return 0, NewError(KindInvalidInput, op, "portfolio has no holdings")
	}

	values := make([]float64, len(p.Holdings))
	for i, h := range p.Holdings {
		if math.IsNaN(h.Value) || math.IsInf(h.Value, 0) || h.Value <= 0 {
			return 0, NewError(KindInvalidInput, op, "holding %d (%s) has non-positive value %v", i, h.Symbol, h.Value)
		}
		values[i] = h.Value
	}

	total := floats.Sum(values)
	if !(total > 0) || math.IsInf(total, 0) {
		return 0, NewError(KindInvalidInput, op, "total value must be positive, got %v", total)
	}
	return total, nil
}
