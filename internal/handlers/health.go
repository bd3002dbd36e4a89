package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	serviceName = "wealth-go-api"
	version     = "1.0.0"
)

type HealthHandler struct {
	startTime time.Time
	provider  string
	store     string
}

// NewHealthHandler reports the chat provider and the memory store by name.
func NewHealthHandler(provider, store string) *HealthHandler {
	return &HealthHandler{
		startTime: time.Now(),
		provider:  provider,
		store:     store,
	}
}

// Root handles GET /
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": serviceName,
		"version": version,
		"status":  "running",
	})
}

// Health handles GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "healthy",
		"service":  serviceName,
		"version":  version,
		"provider": h.provider,
		"store":    h.store,
		"uptime":   time.Since(h.startTime).Round(time.Second).String(),
		"time":     time.Now(),
	})
}

// Ready handles GET /health/ready
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ready",
		"checks": fiber.Map{
			"api":   "ok",
			"llm":   h.provider,
			"store": h.store,
		},
	})
}
