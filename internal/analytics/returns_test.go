package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturnsFromPrices(t *testing.T) {
	r, err := ReturnsFromPrices([]float64{100, 110, 99})
	require.NoError(t, err)
	require.Len(t, r, 2)
	assert.InDelta(t, 0.10, r[0], 1e-12)
	assert.InDelta(t, -0.10, r[1], 1e-12)

	_, err = ReturnsFromPrices([]float64{100})
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = ReturnsFromPrices([]float64{100, 0, 50})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

// tradingDays returns n consecutive days ending on 2026-03-06.
func tradingDays(n int) []time.Time {
	end := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	days := make([]time.Time, n)
	for i := range days {
		days[i] = end.AddDate(0, 0, i-n+1)
	}
	return days
}

func TestCombineReturns(t *testing.T) {
	t.Run("joined on common trading days", func(t *testing.T) {
		days := tradingDays(4)
		got, err := CombineReturns(
			[]DatedPrices{
				{Dates: days, Closes: []float64{100, 101, 103.02, 106.1106}},
				{Dates: days[2:], Closes: []float64{50, 45}},
			},
			[]float64{0.75, 0.25},
		)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.InDelta(t, 0.75*0.03-0.25*0.10, got[0], 1e-9)
	})

	t.Run("missing close does not shift later days", func(t *testing.T) {
		days := tradingDays(5)
		gapped := []time.Time{days[0], days[1], days[3], days[4]}
		got, err := CombineReturns(
			[]DatedPrices{
				{Dates: days, Closes: []float64{100, 110, 121, 133.1, 146.41}},
				{Dates: gapped, Closes: []float64{100, 110, 133.1, 146.41}},
			},
			[]float64{0.5, 0.5},
		)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.InDelta(t, 0.10, got[0], 1e-9)
		// both series span the two-day gap
		assert.InDelta(t, 0.21, got[1], 1e-9)
		assert.InDelta(t, 0.10, got[2], 1e-9)
	})

	t.Run("invalid weights", func(t *testing.T) {
		days := tradingDays(2)
		one := DatedPrices{Dates: days, Closes: []float64{1, 2}}
		_, err := CombineReturns([]DatedPrices{one, one}, []float64{0.5, 0.6})
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, err = CombineReturns([]DatedPrices{one}, []float64{0.5, 0.5})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("invalid dates", func(t *testing.T) {
		days := tradingDays(3)
		_, err := CombineReturns([]DatedPrices{{Dates: days[:2], Closes: []float64{1, 2, 3}}}, []float64{1})
		assert.ErrorIs(t, err, ErrInvalidInput)

		reversed := []time.Time{days[2], days[1], days[0]}
		_, err = CombineReturns([]DatedPrices{{Dates: reversed, Closes: []float64{1, 2, 3}}}, []float64{1})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("no overlap", func(t *testing.T) {
		days := tradingDays(4)
		_, err := CombineReturns(
			[]DatedPrices{
				{Dates: days[:2], Closes: []float64{1, 2}},
				{Dates: days[2:], Closes: []float64{3, 4}},
			},
			[]float64{0.5, 0.5},
		)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})
}
