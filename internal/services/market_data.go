package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"wealth-go-api/internal/analytics"
	"wealth-go-api/internal/metrics"
	"wealth-go-api/internal/models"
)

// PriceSource is a daily price provider such as Yahoo Finance or Alpha Vantage
type PriceSource interface {
	Name() string
	GetDailyCloses(ctx context.Context, symbol string, days int) (*models.PriceHistory, error)
}

// DefaultLookbackDays is one trading year.
const DefaultLookbackDays = 252

// MarketDataService handles concurrent market data fetching
type MarketDataService struct {
	cache         *CacheService
	sources       []PriceSource
	maxConcurrent int
	fetchTimeout  time.Duration
	metrics       *metrics.Metrics
	log           zerolog.Logger
}

func NewMarketDataService(cache *CacheService, maxConcurrent int, m *metrics.Metrics, log zerolog.Logger, sources ...PriceSource) *MarketDataService {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &MarketDataService{
		cache:         cache,
		sources:       sources,
		maxConcurrent: maxConcurrent,
		fetchTimeout:  10 * time.Second,
		metrics:       m,
		log:           log.With().Str("component", "market_data").Logger(),
	}
}

// FetchBatch fetches histories for several symbols with bounded concurrency.
// Failed symbols are logged and left out; it only fails when every fetch does.
func (s *MarketDataService) FetchBatch(ctx context.Context, symbols []string, days int) (map[string]*models.PriceHistory, error) {
	results := make(map[string]*models.PriceHistory, len(symbols))
	var (
		mu   sync.Mutex
		errs []error
	)

	g := new(errgroup.Group)
	g.SetLimit(s.maxConcurrent)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			h, err := s.fetchSingle(ctx, symbol, days)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("failed to fetch %s: %w", symbol, err))
				return nil
			}
			results[symbol] = h
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		s.log.Warn().Err(err).Msg("Price fetch failed")
	}
	if len(errs) > 0 && len(results) == 0 {
		return nil, fmt.Errorf("all fetches failed: %w", errors.Join(errs...))
	}
	return results, nil
}

// fetchSingle fetches one history with cache and fan-out over every source.
// The first source returning at least two closes wins.
func (s *MarketDataService) fetchSingle(ctx context.Context, symbol string, days int) (*models.PriceHistory, error) {
	if cached, found := s.cache.GetPriceHistory(ctx, symbol, days); found {
		s.metrics.IncPriceFetch("cache", nil)
		return cached, nil
	}
	if len(s.sources) == 0 {
		return nil, errors.New("no price source configured")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	type result struct {
		source string
		data   *models.PriceHistory
		err    error
	}

	// Fan-out
	resultCh := make(chan result, len(s.sources))
	for _, src := range s.sources {
		go func(src PriceSource) {
			data, err := src.GetDailyCloses(fetchCtx, symbol, days)
			switch {
			case err != nil:
			case len(data.Closes) < 2:
				err = fmt.Errorf("only %d closes", len(data.Closes))
			case !data.Aligned():
				err = fmt.Errorf("%d dates for %d closes", len(data.Dates), len(data.Closes))
			}
			resultCh <- result{src.Name(), data, err}
		}(src)
	}

	// Fan-in: first success wins
	var errs []error
	for range s.sources {
		select {
		case res := <-resultCh:
			s.metrics.IncPriceFetch(res.source, res.err)
			if res.err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", res.source, res.err))
				continue
			}
			if err := s.cache.SetPriceHistory(ctx, days, res.data); err != nil {
				s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache price history")
			}
			return res.data, nil
		case <-fetchCtx.Done():
			return nil, fetchCtx.Err()
		}
	}
	return nil, fmt.Errorf("all sources failed for %s: %w", symbol, errors.Join(errs...))
}

// GetReturns returns the daily simple returns of one symbol.
func (s *MarketDataService) GetReturns(ctx context.Context, symbol string, days int) ([]float64, error) {
	h, err := s.fetchSingle(ctx, strings.ToUpper(symbol), days+1)
	if err != nil {
		return nil, err
	}
	return analytics.ReturnsFromPrices(h.Closes)
}

// PortfolioReturns builds the value-weighted daily return series of the
// holdings over the trading days all of them were priced on. Every symbol
// must be priced.
func (s *MarketDataService) PortfolioReturns(ctx context.Context, holdings []models.Holding, days int) ([]float64, error) {
	const op = "portfolio_returns"
	if days <= 0 {
		days = DefaultLookbackDays
	}
	weights, err := analytics.ComputeWeights(models.Portfolio{Holdings: holdings})
	if err != nil {
		return nil, err
	}

	bySymbol := map[string]float64{}
	for _, w := range weights {
		bySymbol[strings.ToUpper(strings.TrimSpace(w.Symbol))] += w.Weight
	}
	symbols := make([]string, 0, len(bySymbol))
	for sym := range bySymbol {
		if sym == "" {
			return nil, analytics.NewError(analytics.KindInvalidInput, op, "every holding needs a symbol to fetch prices")
		}
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	histories, err := s.FetchBatch(ctx, symbols, days+1)
	if err != nil {
		return nil, analytics.NewError(analytics.KindInsufficientData, op, "no price history available: %v", err)
	}

	series := make([]analytics.DatedPrices, 0, len(symbols))
	ws := make([]float64, 0, len(symbols))
	for _, sym := range symbols {
		h, ok := histories[sym]
		if !ok {
			return nil, analytics.NewError(analytics.KindInsufficientData, op, "no price history for %s", sym)
		}
		series = append(series, analytics.DatedPrices{Dates: h.Dates, Closes: h.Closes})
		ws = append(ws, bySymbol[sym])
	}

	// weights can drift from 1 by rounding after merging duplicates
	total := 0.0
	for _, w := range ws {
		total += w
	}
	for i := range ws {
		ws[i] /= total
	}
	return analytics.CombineReturns(series, ws)
}

// RefreshCache drops every cached price history.
func (s *MarketDataService) RefreshCache(ctx context.Context) (int, error) {
	return s.cache.Clear(ctx)
}
