package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"wealth-go-api/internal/advisor"
	"wealth-go-api/internal/models"
	"wealth-go-api/internal/services"
)

type ChatHandler struct {
	advisor *advisor.Advisor
	memory  *services.MemoryService
	timeout time.Duration
}

func NewChatHandler(a *advisor.Advisor, memory *services.MemoryService) *ChatHandler {
	return &ChatHandler{
		advisor: a,
		memory:  memory,
		timeout: 90 * time.Second,
	}
}

// Chat handles POST /api/chat. A request without user_id starts a new
// conversation under a fresh id, returned in the response.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	if strings.TrimSpace(req.Message) == "" {
		return badRequest(c, "Message is required", nil)
	}
	if req.UserID == "" {
		req.UserID = uuid.NewString()
	}

	reply, err := h.advisor.Chat(ctx, req.UserID, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(models.ChatResponse{
		Response: reply.Text,
		HTML:     reply.HTML,
		UserID:   req.UserID,
	})
}

// Preferences handles POST /api/preferences
func (h *ChatHandler) Preferences(c *fiber.Ctx) error {
	var req models.PreferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	if len(req.Preferences) == 0 {
		return badRequest(c, "Preferences are required", nil)
	}

	if err := h.memory.SavePreferences(c.Context(), req.UserID, req.Preferences); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Preferences saved",
	})
}

// Portfolio handles POST /api/portfolio
func (h *ChatHandler) Portfolio(c *fiber.Ctx) error {
	var req models.PortfolioRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	for _, holding := range req.Portfolio {
		if holding.Value <= 0 {
			return badRequest(c, "Invalid holding", fmt.Errorf("holding %q must have a positive value", holding.Symbol))
		}
	}

	if err := h.memory.SavePortfolio(c.Context(), req.UserID, req.Portfolio); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Portfolio saved",
	})
}

// Memory handles GET /api/memory?user_id=
func (h *ChatHandler) Memory(c *fiber.Ctx) error {
	summary, err := h.memory.Summary(c.Context(), c.Query("user_id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"summary": summary,
	})
}

// Clear handles POST /api/clear
func (h *ChatHandler) Clear(c *fiber.Ctx) error {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}

	if err := h.memory.ClearHistory(c.Context(), req.UserID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Conversation history cleared",
	})
}
