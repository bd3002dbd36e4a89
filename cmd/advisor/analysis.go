package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"wealth-go-api/internal/config"
	"wealth-go-api/internal/format"
	"wealth-go-api/internal/models"
	"wealth-go-api/internal/planning"
	"wealth-go-api/internal/services"
	"wealth-go-api/pkg/alphavantage"
	"wealth-go-api/pkg/yahoo"
)

// analysisCmd reads one JSON request and prints the markdown summary of its
// result.
type analysisCmd struct {
	name, synopsis, example string
	run                     func(ctx context.Context, svc *services.AnalysisService, input []byte) (string, error)

	file string
	raw  bool
}

func (c *analysisCmd) Name() string     { return c.name }
func (c *analysisCmd) Synopsis() string { return c.synopsis }
func (c *analysisCmd) Usage() string {
	return fmt.Sprintf(`advisor %s [-f <file>] [-raw]

  %s
  Reads the JSON request from -f or stdin, for example:

  %s
`, c.name, c.synopsis, c.example)
}

func (c *analysisCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "f", "", "JSON request file (defaults to stdin)")
	f.BoolVar(&c.raw, "raw", false, "print markdown without terminal rendering")
}

func (c *analysisCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	input, err := readInput(c.file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	svc, err := newAnalysisService()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	md, err := c.run(ctx, svc, input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(md, c.raw)
	return subcommands.ExitSuccess
}

var commands = []subcommands.Command{
	&analysisCmd{
		name:     "risk",
		synopsis: "compute VaR, Sharpe ratio, volatility and drawdown of a portfolio",
		example:  `{"portfolio": [{"symbol": "VTI", "value": 10000, "asset_class": "equity"}], "returns": [0.01, -0.02, 0.015]}`,
		run: func(ctx context.Context, svc *services.AnalysisService, input []byte) (string, error) {
			var req models.RiskRequest
			if err := json.Unmarshal(input, &req); err != nil {
				return "", fmt.Errorf("invalid request: %w", err)
			}
			report, err := svc.Risk(ctx, req)
			if err != nil {
				return "", err
			}
			return format.RiskSummary(report), nil
		},
	},
	&analysisCmd{
		name:     "diversify",
		synopsis: "analyze diversification by asset class, sector and geography",
		example:  `{"portfolio": [...], "thresholds": {"sector": 0.25}}`,
		run: func(ctx context.Context, svc *services.AnalysisService, input []byte) (string, error) {
			var req models.DiversificationRequest
			if err := json.Unmarshal(input, &req); err != nil {
				return "", fmt.Errorf("invalid request: %w", err)
			}
			report, recs, err := svc.Diversification(req.Portfolio, req.Thresholds)
			if err != nil {
				return "", err
			}
			return format.DiversificationSummary(report, recs), nil
		},
	},
	&analysisCmd{
		name:     "rebalance",
		synopsis: "suggest trades towards a target allocation",
		example:  `{"portfolio": [...], "target_allocation": {"equity": 0.6, "bond": 0.4}}`,
		run: func(ctx context.Context, svc *services.AnalysisService, input []byte) (string, error) {
			var req models.RebalanceRequest
			if err := json.Unmarshal(input, &req); err != nil {
				return "", fmt.Errorf("invalid request: %w", err)
			}
			trades, err := svc.Rebalance(req.Portfolio, req.TargetAllocation)
			if err != nil {
				return "", err
			}
			return format.RebalanceSummary(trades), nil
		},
	},
	&analysisCmd{
		name:     "tolerance",
		synopsis: "score risk tolerance from a questionnaire",
		example:  `{"age": 35, "time_horizon": 20, "loss_reaction": "hold", "goal": "growth"}`,
		run: func(ctx context.Context, svc *services.AnalysisService, input []byte) (string, error) {
			var q planning.Questionnaire
			if err := json.Unmarshal(input, &q); err != nil {
				return "", fmt.Errorf("invalid request: %w", err)
			}
			profile, err := svc.RiskTolerance(q)
			if err != nil {
				return "", err
			}
			return format.RiskProfileSummary(profile), nil
		},
	},
	&analysisCmd{
		name:     "strategy",
		synopsis: "design an investment strategy for a set of goals",
		example:  `{"risk_profile": "moderate", "goals": [{"goal_type": "retirement", "target_amount": 1000000, "years": 25}], "monthly_contribution": 1000}`,
		run: func(ctx context.Context, svc *services.AnalysisService, input []byte) (string, error) {
			var req planning.StrategyRequest
			if err := json.Unmarshal(input, &req); err != nil {
				return "", fmt.Errorf("invalid request: %w", err)
			}
			plan, err := svc.Strategy(req)
			if err != nil {
				return "", err
			}
			return format.StrategySummary(plan), nil
		},
	},
}

func readInput(file string) ([]byte, error) {
	if file == "" || file == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(file)
}

// newAnalysisService wires the analysis service with an in-process price
// cache, for risk requests that omit their returns.
func newAnalysisService() (*services.AnalysisService, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := zerolog.Nop()
	sources := []services.PriceSource{yahoo.NewClient()}
	if cfg.AlphaVantageKey != "" {
		sources = append(sources, alphavantage.NewClient(cfg.AlphaVantageKey))
	}
	cache := services.NewCacheService(nil, cfg.CacheTTL(), log)
	md := services.NewMarketDataService(cache, cfg.MaxConcurrentFetches, nil, log, sources...)
	return services.NewAnalysisService(cfg, md, nil, log), nil
}

func printMarkdown(md string, raw bool) {
	if raw {
		fmt.Print(md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Print(md)
}
