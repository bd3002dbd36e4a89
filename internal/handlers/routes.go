package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"wealth-go-api/internal/metrics"
)

// Register mounts the service routes on app.
func Register(app *fiber.App, health *HealthHandler, chat *ChatHandler, analysis *AnalysisHandler) {
	app.Get("/health", health.Health)
	app.Get("/health/ready", health.Ready)

	api := app.Group("/api")
	api.Post("/chat", chat.Chat)
	api.Post("/preferences", chat.Preferences)
	api.Post("/portfolio", chat.Portfolio)
	api.Get("/memory", chat.Memory)
	api.Post("/clear", chat.Clear)

	api.Post("/risk-assessment", analysis.Risk)
	api.Post("/diversification", analysis.Diversification)
	api.Post("/rebalance", analysis.Rebalance)
	api.Post("/risk-tolerance", analysis.RiskTolerance)
	api.Post("/strategy", analysis.Strategy)
	api.Get("/returns/:symbol", analysis.Returns)
	api.Post("/admin/refresh", analysis.RefreshCache)
}

// Instrument records every request in m and logs failures and slow calls.
// Errors are rendered here so the logged status is the one sent.
func Instrument(m *metrics.Metrics, log zerolog.Logger) fiber.Handler {
	log = log.With().Str("component", "http").Logger()
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				return herr
			}
		}

		status := c.Response().StatusCode()
		elapsed := time.Since(start)
		route := c.Route().Path
		m.ObserveRequest(route, c.Method(), status, elapsed)

		var ev *zerolog.Event
		switch {
		case status >= fiber.StatusInternalServerError:
			ev = log.Error().Err(err)
		case elapsed > 5*time.Second:
			ev = log.Warn()
		default:
			return nil
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", elapsed).
			Msg("Request")
		return nil
	}
}
