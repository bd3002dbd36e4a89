package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"wealth-go-api/internal/format"
	"wealth-go-api/internal/models"
	"wealth-go-api/internal/planning"
	"wealth-go-api/internal/services"
)

// AnalysisHandler exposes the analytics tools without going through the model.
type AnalysisHandler struct {
	analysis *services.AnalysisService
}

func NewAnalysisHandler(analysis *services.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysis: analysis}
}

// Risk handles POST /api/risk-assessment
func (h *AnalysisHandler) Risk(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 30*time.Second)
	defer cancel()

	var req models.RiskRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	if len(req.Portfolio) == 0 {
		return badRequest(c, "Portfolio is required", nil)
	}

	report, err := h.analysis.Risk(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"metrics": report,
		"summary": format.RiskSummary(report),
	})
}

// Diversification handles POST /api/diversification
func (h *AnalysisHandler) Diversification(c *fiber.Ctx) error {
	var req models.DiversificationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	if len(req.Portfolio) == 0 {
		return badRequest(c, "Portfolio is required", nil)
	}

	report, recs, err := h.analysis.Diversification(req.Portfolio, req.Thresholds)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":         true,
		"analysis":        report,
		"recommendations": recs,
		"summary":         format.DiversificationSummary(report, recs),
	})
}

// Rebalance handles POST /api/rebalance
func (h *AnalysisHandler) Rebalance(c *fiber.Ctx) error {
	var req models.RebalanceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	if len(req.Portfolio) == 0 {
		return badRequest(c, "Portfolio is required", nil)
	}

	trades, err := h.analysis.Rebalance(req.Portfolio, req.TargetAllocation)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"trades":  trades,
		"summary": format.RebalanceSummary(trades),
	})
}

// RiskTolerance handles POST /api/risk-tolerance
func (h *AnalysisHandler) RiskTolerance(c *fiber.Ctx) error {
	var q planning.Questionnaire
	if err := c.BodyParser(&q); err != nil {
		return badRequest(c, "Invalid request body", err)
	}

	profile, err := h.analysis.RiskTolerance(q)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"profile": profile,
		"summary": format.RiskProfileSummary(profile),
	})
}

// Strategy handles POST /api/strategy
func (h *AnalysisHandler) Strategy(c *fiber.Ctx) error {
	var req planning.StrategyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}

	plan, err := h.analysis.Strategy(req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"strategy": plan,
		"summary":  format.StrategySummary(plan),
	})
}

// Returns handles GET /api/returns/:symbol?days=
func (h *AnalysisHandler) Returns(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 15*time.Second)
	defer cancel()

	symbol := strings.ToUpper(strings.TrimSpace(c.Params("symbol")))
	if symbol == "" {
		return badRequest(c, "Symbol is required", nil)
	}
	days := c.QueryInt("days", services.DefaultLookbackDays)
	if days <= 0 || days > 5*services.DefaultLookbackDays {
		return badRequest(c, "Invalid days", nil)
	}

	returns, err := h.analysis.Returns(ctx, symbol, days)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":      true,
		"symbol":       symbol,
		"observations": len(returns),
		"returns":      returns,
	})
}

// RefreshCache handles POST /api/admin/refresh
func (h *AnalysisHandler) RefreshCache(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 60*time.Second)
	defer cancel()

	n, err := h.analysis.RefreshPrices(ctx)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Cache refreshed successfully",
		"cleared": n,
		"time":    time.Now(),
	})
}
