package analytics

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeVolatility(t *testing.T) {
	t.Run("sample standard deviation", func(t *testing.T) {
		// mean 0.02, squared deviations 0.0001+0+0.0001, n-1 = 2
		vol, err := ComputeVolatility([]float64{0.01, 0.02, 0.03}, 0)
		require.NoError(t, err)
		assert.InDelta(t, 0.01, vol, 1e-12)
	})

	t.Run("annualised by sqrt of periodicity", func(t *testing.T) {
		vol, err := ComputeVolatility([]float64{0.01, 0.02, 0.03}, 12)
		require.NoError(t, err)
		assert.InDelta(t, 0.01*math.Sqrt(12), vol, 1e-12)
	})

	t.Run("constant returns", func(t *testing.T) {
		vol, err := ComputeVolatility([]float64{0.013, 0.013, 0.013, 0.013, 0.013}, 252)
		require.NoError(t, err)
		assert.Equal(t, 0.0, vol)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := ComputeVolatility([]float64{0.01}, 0)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("negative periodicity", func(t *testing.T) {
		_, err := ComputeVolatility([]float64{0.01, 0.02}, -1)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("not finite", func(t *testing.T) {
		_, err := ComputeVolatility([]float64{0.01, math.NaN()}, 0)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestComputeSharpeRatio(t *testing.T) {
	returns := []float64{0.01, 0.02, 0.03}

	t.Run("per period", func(t *testing.T) {
		sharpe, err := ComputeSharpeRatio(returns, 0.005, 0)
		require.NoError(t, err)
		assert.InDelta(t, (0.02-0.005)/0.01, sharpe, 1e-9)
	})

	t.Run("annual risk-free rate converted to periods", func(t *testing.T) {
		sharpe, err := ComputeSharpeRatio(returns, 0.06, 12)
		require.NoError(t, err)
		assert.InDelta(t, (0.02-0.005)/0.01, sharpe, 1e-9)
	})

	t.Run("zero volatility", func(t *testing.T) {
		sharpe, err := ComputeSharpeRatio([]float64{0.01, 0.01, 0.01}, 0.04, 252)
		assert.ErrorIs(t, err, ErrDivisionByZero)
		assert.False(t, math.IsInf(sharpe, 0))
	})

	t.Run("too short", func(t *testing.T) {
		_, err := ComputeSharpeRatio([]float64{0.01}, 0.04, 252)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})
}

func TestComputeValueAtRisk(t *testing.T) {
	returns := []float64{0.04, -0.02, 0.03, -0.05, 0.01}

	t.Run("linear interpolation between order statistics", func(t *testing.T) {
		v, err := ComputeValueAtRisk(returns, 0.80, 1000)
		require.NoError(t, err)
		// position 0.2*4 = 0.8 between -0.05 and -0.02
		assert.InDelta(t, -0.026, v.Quantile, 1e-9)
		assert.InDelta(t, 26.0, v.Value, 1e-9)
		assert.False(t, v.LowSampleSize)
		assert.Equal(t, 5, v.MinSampleSize)
	})

	t.Run("input is not reordered", func(t *testing.T) {
		in := []float64{0.04, -0.02, 0.03}
		_, err := ComputeValueAtRisk(in, 0.5, 1)
		require.NoError(t, err)
		assert.Equal(t, []float64{0.04, -0.02, 0.03}, in)
	})

	t.Run("low sample size is flagged", func(t *testing.T) {
		v, err := ComputeValueAtRisk(returns, 0.95, 1000)
		require.NoError(t, err)
		assert.True(t, v.LowSampleSize)
		assert.Equal(t, 20, v.MinSampleSize)
		assert.InDelta(t, 0.05*0.8*1000+0.02*0.2*1000, v.Value, 1e-9)
	})

	t.Run("single observation", func(t *testing.T) {
		v, err := ComputeValueAtRisk([]float64{-0.1}, 0.99, 500)
		require.NoError(t, err)
		assert.InDelta(t, 50.0, v.Value, 1e-9)
	})

	for _, c := range []float64{0, 1, -0.5, 1.5, math.NaN()} {
		_, err := ComputeValueAtRisk(returns, c, 1000)
		assert.ErrorIs(t, err, ErrInvalidInput, "confidence %v", c)
	}

	_, err := ComputeValueAtRisk(returns, 0.95, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ComputeValueAtRisk(nil, 0.95, 1000)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestComputeMaxDrawdown(t *testing.T) {
	tests := []struct {
		name    string
		returns []float64
		want    float64
	}{
		{"flat", []float64{0, 0, 0, 0}, 0},
		{"rising", []float64{0.01, 0.02, 0, 0.05}, 0},
		{"peak then trough", []float64{0.1, -0.5, 0.1}, 0.5},
		{"loss from the start", []float64{-0.2, 0.1}, 0.2},
		{"two dips", []float64{0.1, -0.1, 0.3, -0.3, 0.05}, 0.3},
		{"total loss", []float64{0.1, -1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dd, err := ComputeMaxDrawdown(tt.returns)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, dd, 1e-9)
		})
	}

	_, err := ComputeMaxDrawdown(nil)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = ComputeMaxDrawdown([]float64{-1.5})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAnalyzeRisk(t *testing.T) {
	params := DefaultRiskParams()
	params.PortfolioValue = 10000

	t.Run("full report", func(t *testing.T) {
		returns := []float64{0.01, -0.02, 0.015, 0.003, -0.007, 0.012}
		report, err := AnalyzeRisk(returns, params)
		require.NoError(t, err)

		require.NotNil(t, report.SharpeRatio)
		require.NotNil(t, report.AnnualizedSharpe)
		assert.InDelta(t, *report.SharpeRatio*math.Sqrt(252), *report.AnnualizedSharpe, 1e-12)
		assert.Equal(t, len(returns), report.Observations)
		assert.True(t, report.LowSampleSize)
		assert.InDelta(t, report.PeriodVolatility*math.Sqrt(252), report.Volatility, 1e-12)
		assert.Greater(t, report.ValueAtRisk, 0.0)
		assert.Greater(t, report.MaxDrawdown, 0.0)
		assert.Equal(t, params, report.Params)
	})

	t.Run("zero volatility leaves sharpe null", func(t *testing.T) {
		report, err := AnalyzeRisk([]float64{0.01, 0.01, 0.01}, params)
		require.NoError(t, err)
		assert.Nil(t, report.SharpeRatio)
		assert.Nil(t, report.AnnualizedSharpe)
		assert.Contains(t, report.Warnings, "sharpe ratio undefined: zero volatility")
		assert.Equal(t, 0.0, report.Volatility)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := AnalyzeRisk([]float64{0.01}, params)
		assert.True(t, errors.Is(err, ErrInsufficientData))
	})
}

func TestRiskFunctionsAreReentrant(t *testing.T) {
	returns := []float64{0.01, -0.03, 0.02, 0.04, -0.01, 0.005, -0.02}
	params := DefaultRiskParams()
	params.PortfolioValue = 1000

	want, err := AnalyzeRisk(returns, params)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]RiskReport, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = AnalyzeRisk(returns, params)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestErrorKinds(t *testing.T) {
	err := NewError(KindInsufficientData, "op", "need %d", 2)
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.NotErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, KindInsufficientData, KindOf(err))
	assert.Equal(t, KindUnknown, KindOf(errors.New("other")))
	assert.Equal(t, "op: insufficient data: need 2", err.Error())
}
