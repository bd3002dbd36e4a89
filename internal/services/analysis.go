package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"wealth-go-api/internal/analytics"
	"wealth-go-api/internal/config"
	"wealth-go-api/internal/metrics"
	"wealth-go-api/internal/models"
	"wealth-go-api/internal/planning"
)

// AnalysisService coordinates the analytics pipeline: it resolves request
// defaults from configuration, sources return series from market data when
// none are supplied and runs the pure computations.
type AnalysisService struct {
	riskDefaults analytics.RiskParams
	thresholds   analytics.Thresholds
	marketData   *MarketDataService
	metrics      *metrics.Metrics
	log          zerolog.Logger
}

// NewAnalysisService accepts a nil marketData; risk requests must then carry
// their own returns.
func NewAnalysisService(cfg *config.Config, marketData *MarketDataService, m *metrics.Metrics, log zerolog.Logger) *AnalysisService {
	return &AnalysisService{
		riskDefaults: analytics.RiskParams{
			ConfidenceLevel: cfg.ConfidenceLevel,
			RiskFreeRate:    cfg.RiskFreeRate,
			PeriodsPerYear:  cfg.PeriodsPerYear,
		},
		thresholds: analytics.Thresholds{
			AssetClass: cfg.ThresholdAssetClass,
			Sector:     cfg.ThresholdSector,
			Geography:  cfg.ThresholdGeography,
			Holding:    cfg.ThresholdHolding,
		},
		marketData: marketData,
		metrics:    m,
		log:        log.With().Str("component", "analysis").Logger(),
	}
}

// Risk runs the risk report for a portfolio.
func (s *AnalysisService) Risk(ctx context.Context, req models.RiskRequest) (analytics.RiskReport, error) {
	p := models.Portfolio{Holdings: req.Portfolio}
	if _, err := analytics.ComputeWeights(p); err != nil {
		return analytics.RiskReport{}, s.fail(err)
	}

	params := s.riskDefaults
	if req.ConfidenceLevel != nil {
		params.ConfidenceLevel = *req.ConfidenceLevel
	}
	if req.RiskFreeRate != nil {
		params.RiskFreeRate = *req.RiskFreeRate
	}
	if req.PeriodsPerYear != nil {
		params.PeriodsPerYear = *req.PeriodsPerYear
	}
	params.PortfolioValue = p.TotalValue()

	returns := req.Returns
	if len(returns) == 0 {
		if s.marketData == nil {
			return analytics.RiskReport{}, s.fail(analytics.NewError(analytics.KindInsufficientData, "risk", "no return series given and market data is disabled"))
		}
		var err error
		returns, err = s.marketData.PortfolioReturns(ctx, req.Portfolio, req.LookbackDays)
		if err != nil {
			return analytics.RiskReport{}, s.fail(err)
		}
		s.log.Debug().Int("observations", len(returns)).Int("holdings", len(req.Portfolio)).Msg("Built return series from market data")
	}

	report, err := analytics.AnalyzeRisk(returns, params)
	if err != nil {
		return analytics.RiskReport{}, s.fail(err)
	}
	return report, nil
}

// Diversification analyses a portfolio with the configured thresholds,
// overridden per dimension by name.
func (s *AnalysisService) Diversification(holdings []models.Holding, overrides map[string]float64) (analytics.DiversificationReport, []analytics.Recommendation, error) {
	t := s.thresholds.WithDefaults()
	for name, v := range overrides {
		switch analytics.Dimension(strings.ToLower(name)) {
		case analytics.DimensionAssetClass:
			t.AssetClass = v
		case analytics.DimensionSector:
			t.Sector = v
		case analytics.DimensionGeography:
			t.Geography = v
		case analytics.DimensionHolding:
			t.Holding = v
		default:
			return analytics.DiversificationReport{}, nil, s.fail(analytics.NewError(analytics.KindInvalidInput, "diversification", "unknown threshold %q", name))
		}
	}

	report, err := analytics.ComputeDiversification(models.Portfolio{Holdings: holdings}, t)
	if err != nil {
		return analytics.DiversificationReport{}, nil, s.fail(err)
	}
	return report, analytics.Recommend(report), nil
}

// Rebalance suggests trades towards target, or the default allocation.
func (s *AnalysisService) Rebalance(holdings []models.Holding, target map[string]float64) ([]analytics.Trade, error) {
	trades, err := analytics.SuggestRebalancing(models.Portfolio{Holdings: holdings}, target)
	if err != nil {
		return nil, s.fail(err)
	}
	return trades, nil
}

func (s *AnalysisService) RiskTolerance(q planning.Questionnaire) (planning.RiskProfile, error) {
	p, err := planning.AssessRiskTolerance(q)
	if err != nil {
		return planning.RiskProfile{}, s.fail(err)
	}
	return p, nil
}

func (s *AnalysisService) Strategy(req planning.StrategyRequest) (planning.InvestmentPlan, error) {
	plan, err := planning.DesignStrategy(req)
	if err != nil {
		return planning.InvestmentPlan{}, s.fail(err)
	}
	return plan, nil
}

// Returns exposes one symbol's daily returns.
func (s *AnalysisService) Returns(ctx context.Context, symbol string, days int) ([]float64, error) {
	if s.marketData == nil {
		return nil, s.fail(analytics.NewError(analytics.KindInsufficientData, "returns", "market data is disabled"))
	}
	if days <= 0 {
		days = DefaultLookbackDays
	}
	returns, err := s.marketData.GetReturns(ctx, symbol, days)
	if err != nil {
		return nil, s.fail(fmt.Errorf("returns for %s: %w", symbol, err))
	}
	return returns, nil
}

// RefreshPrices drops cached price histories.
func (s *AnalysisService) RefreshPrices(ctx context.Context) (int, error) {
	if s.marketData == nil {
		return 0, nil
	}
	return s.marketData.RefreshCache(ctx)
}

// fail counts the error by kind and passes it through.
func (s *AnalysisService) fail(err error) error {
	s.metrics.IncAnalyticsError(analytics.KindOf(err).String())
	return err
}
