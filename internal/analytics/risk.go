package analytics

import (
	"errors"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RiskParams are the knobs of a risk report.
type RiskParams struct {
	ConfidenceLevel float64 `json:"confidence_level"`
	RiskFreeRate    float64 `json:"risk_free_rate"`   // annual when PeriodsPerYear > 0, per period otherwise
	PeriodsPerYear  int     `json:"periods_per_year"` // 0 disables annualisation
	PortfolioValue  float64 `json:"portfolio_value"`
}

// DefaultRiskParams mirrors the advisor defaults: 95% VaR, 4% risk-free, daily returns.
func DefaultRiskParams() RiskParams {
	return RiskParams{
		ConfidenceLevel: 0.95,
		RiskFreeRate:    0.04,
		PeriodsPerYear:  252,
	}
}

// RiskReport is the output of AnalyzeRisk
type RiskReport struct {
	ValueAtRisk      float64    `json:"value_at_risk"`
	// SharpeRatio is per period, AnnualizedSharpe scales it by
	// sqrt(PeriodsPerYear).
	SharpeRatio      *float64   `json:"sharpe_ratio"`
	AnnualizedSharpe *float64   `json:"annualized_sharpe_ratio,omitempty"`
	Volatility       float64    `json:"volatility"`
	PeriodVolatility float64    `json:"period_volatility"`
	MaxDrawdown      float64    `json:"max_drawdown"`
	MeanReturn       float64    `json:"mean_return"`
	Observations     int        `json:"observations"`
	LowSampleSize    bool       `json:"low_sample_size"`
	MinSampleSize    int        `json:"min_sample_size"`
	Params           RiskParams `json:"params"`
	Warnings         []string   `json:"warnings,omitempty"`
}

// VaRResult is a historical-simulation value at risk
type VaRResult struct {
	Value         float64 `json:"value"`
	Quantile      float64 `json:"quantile"`
	LowSampleSize bool    `json:"low_sample_size"`
	MinSampleSize int     `json:"min_sample_size"`
}

// ComputeVolatility is the sample standard deviation of returns (n-1
// denominator), multiplied by sqrt(periodsPerYear) when periodsPerYear > 0.
func ComputeVolatility(returns []float64, periodsPerYear int) (float64, error) {
	const op = "compute_volatility"
	if err := checkSeries(op, returns, 2); err != nil {
		return 0, err
	}
	k, err := annualization(op, periodsPerYear)
	if err != nil {
		return 0, err
	}
	// A constant series has exactly zero dispersion; the two-pass variance
	// can leave rounding noise behind.
	if floats.Min(returns) == floats.Max(returns) {
		return 0, nil
	}
	return stat.StdDev(returns, nil) * k, nil
}

// ComputeSharpeRatio returns the per-period ratio (mean - rf/periodsPerYear)
// / volatility, with rf an annual rate and volatility not annualized.
// Multiply by sqrt(periodsPerYear) for the annualized figure.
func ComputeSharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) (float64, error) {
	const op = "compute_sharpe_ratio"
	vol, err := ComputeVolatility(returns, 0)
	if err != nil {
		return 0, err
	}
	if _, err := annualization(op, periodsPerYear); err != nil {
		return 0, err
	}
	if math.IsNaN(riskFreeRate) || math.IsInf(riskFreeRate, 0) {
		return 0, NewError(KindInvalidInput, op, "risk-free rate must be finite")
	}
	if vol == 0 {
		return 0, NewError(KindDivisionByZero, op, "volatility is zero")
	}

	rf := riskFreeRate
	if periodsPerYear > 0 {
		rf = riskFreeRate / float64(periodsPerYear)
	}
	return (stat.Mean(returns, nil) - rf) / vol, nil
}

// ComputeValueAtRisk is historical-simulation VaR. The (1-confidence)
// quantile is interpolated linearly at position (1-confidence)*(n-1) of the
// ascending returns, then negated and scaled by portfolioValue so that a loss
// is positive.
func ComputeValueAtRisk(returns []float64, confidenceLevel, portfolioValue float64) (VaRResult, error) {
	const op = "compute_value_at_risk"
	if math.IsNaN(confidenceLevel) || confidenceLevel <= 0 || confidenceLevel >= 1 {
		return VaRResult{}, NewError(KindInvalidInput, op, "confidence level %v outside (0, 1)", confidenceLevel)
	}
	if math.IsNaN(portfolioValue) || math.IsInf(portfolioValue, 0) || portfolioValue <= 0 {
		return VaRResult{}, NewError(KindInvalidInput, op, "portfolio value must be positive, got %v", portfolioValue)
	}
	if err := checkSeries(op, returns, 1); err != nil {
		return VaRResult{}, err
	}

	sorted := slices.Clone(returns)
	slices.Sort(sorted)

	pos := (1 - confidenceLevel) * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	q := sorted[lo] + (pos-float64(lo))*(sorted[hi]-sorted[lo])

	minSamples := MinSampleSize(confidenceLevel)
	return VaRResult{
		Value:         -q * portfolioValue,
		Quantile:      q,
		LowSampleSize: len(returns) < minSamples,
		MinSampleSize: minSamples,
	}, nil
}

// MinSampleSize is ceil(1/(1-confidence)), the smallest series for which the
// tail quantile is backed by at least one observation.
func MinSampleSize(confidenceLevel float64) int {
	// 1/(1-0.8) evaluates to 5.000000000000001
	return int(math.Ceil(1/(1-confidenceLevel) - 1e-9))
}

// ComputeMaxDrawdown rebuilds the value curve from 1.0 and returns the
// largest (peak - value) / peak.
func ComputeMaxDrawdown(returns []float64) (float64, error) {
	const op = "compute_max_drawdown"
	if err := checkSeries(op, returns, 1); err != nil {
		return 0, err
	}

	value, peak, maxDrawdown := 1.0, 1.0, 0.0
	for i, r := range returns {
		if r < -1 {
			return 0, NewError(KindInvalidInput, op, "return %d is below -100%%: %v", i, r)
		}
		value *= 1 + r
		if value > peak {
			peak = value
			continue
		}
		if dd := (peak - value) / peak; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown, nil
}

// AnalyzeRisk runs every risk metric over one return series. A zero
// volatility leaves SharpeRatio nil with a warning instead of failing.
func AnalyzeRisk(returns []float64, params RiskParams) (RiskReport, error) {
	periodVol, err := ComputeVolatility(returns, 0)
	if err != nil {
		return RiskReport{}, err
	}
	vol, err := ComputeVolatility(returns, params.PeriodsPerYear)
	if err != nil {
		return RiskReport{}, err
	}
	v, err := ComputeValueAtRisk(returns, params.ConfidenceLevel, params.PortfolioValue)
	if err != nil {
		return RiskReport{}, err
	}
	dd, err := ComputeMaxDrawdown(returns)
	if err != nil {
		return RiskReport{}, err
	}

	report := RiskReport{
		ValueAtRisk:      v.Value,
		Volatility:       vol,
		PeriodVolatility: periodVol,
		MaxDrawdown:      dd,
		MeanReturn:       stat.Mean(returns, nil),
		Observations:     len(returns),
		LowSampleSize:    v.LowSampleSize,
		MinSampleSize:    v.MinSampleSize,
		Params:           params,
	}

	sharpe, err := ComputeSharpeRatio(returns, params.RiskFreeRate, params.PeriodsPerYear)
	switch {
	case errors.Is(err, ErrDivisionByZero):
		report.Warnings = append(report.Warnings, "sharpe ratio undefined: zero volatility")
	case err != nil:
		return RiskReport{}, err
	default:
		report.SharpeRatio = &sharpe
		if params.PeriodsPerYear > 0 {
			annual := sharpe * math.Sqrt(float64(params.PeriodsPerYear))
			report.AnnualizedSharpe = &annual
		}
	}

	if report.LowSampleSize {
		report.Warnings = append(report.Warnings, "fewer observations than the VaR confidence level needs")
	}
	return report, nil
}

func checkSeries(op string, returns []float64, minLen int) error {
	if len(returns) < minLen {
		return NewError(KindInsufficientData, op, "need at least %d returns, got %d", minLen, len(returns))
	}
	for i, r := range returns {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return NewError(KindInvalidInput, op, "return %d is not finite", i)
		}
	}
	return nil
}

func annualization(op string, periodsPerYear int) (float64, error) {
	switch {
	case periodsPerYear < 0:
		return 0, NewError(KindInvalidInput, op, "periods per year must not be negative, got %d", periodsPerYear)
	case periodsPerYear == 0:
		return 1, nil
	default:
		return math.Sqrt(float64(periodsPerYear)), nil
	}
}
