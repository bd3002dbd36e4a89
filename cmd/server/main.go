package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"

	"wealth-go-api/internal/advisor"
	"wealth-go-api/internal/config"
	"wealth-go-api/internal/handlers"
	"wealth-go-api/internal/logging"
	"wealth-go-api/internal/metrics"
	"wealth-go-api/internal/services"
	"wealth-go-api/pkg/alphavantage"
	"wealth-go-api/pkg/yahoo"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "production", os.Stderr).Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.Environment, os.Stdout)

	ctx := context.Background()
	var fs *firestore.Client
	if cfg.FirestoreProject != "" {
		fs, err = firestore.NewClient(ctx, cfg.FirestoreProject)
		if err != nil {
			log.Fatal().Err(err).Str("project", cfg.FirestoreProject).Msg("Failed to create Firestore client")
		}
		defer fs.Close()
	} else {
		log.Warn().Msg("FIRESTORE_PROJECT_ID not set, memory and price cache are process local")
	}

	m := metrics.New("wealth")

	// Initialize services
	sources := []services.PriceSource{yahoo.NewClient()}
	if cfg.AlphaVantageKey != "" {
		sources = append(sources, alphavantage.NewClient(cfg.AlphaVantageKey))
	}
	cacheService := services.NewCacheService(fs, cfg.CacheTTL(), log)
	defer cacheService.Close()
	marketDataService := services.NewMarketDataService(cacheService, cfg.MaxConcurrentFetches, m, log, sources...)
	analysisService := services.NewAnalysisService(cfg, marketDataService, m, log)
	memoryService := services.NewMemoryService(fs, log)

	provider, err := advisor.NewProvider(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create LLM provider")
	}
	if provider.Name() != cfg.LLMProvider {
		log.Warn().Str("requested", cfg.LLMProvider).Msg("No API key for the requested provider, running in demo mode")
	}
	adv := advisor.New(provider, memoryService, analysisService, cfg.HistoryLimit, m, log)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(provider.Name(), memoryService.Store())
	chatHandler := handlers.NewChatHandler(adv, memoryService)
	analysisHandler := handlers.NewAnalysisHandler(analysisService)

	app := fiber.New(fiber.Config{
		StrictRouting: true,
		CaseSensitive: true,
		ServerHeader:  "Wealth-API",
		AppName:       "Wealth Advisor v1.0",
		ReadTimeout:   time.Second * 10,
		WriteTimeout:  time.Second * 120,
		BodyLimit:     4 * 1024 * 1024, // 4MB
		ErrorHandler:  handlers.CustomErrorHandler,
	})

	// Middleware stack
	app.Use(recover.New())
	app.Use(requestid.New())
	if cfg.IsDevelopment() {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path} ${locals:requestid}\n",
		}))
	}
	app.Use(handlers.Instrument(m, log))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
		MaxAge:       3600,
	}))
	app.Use("/api", limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please try again later.",
			})
		},
	}))

	// Routes
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	handlers.Register(app, healthHandler, chatHandler, analysisHandler)
	if cfg.UIDir != "" {
		app.Static("/", cfg.UIDir)
	} else {
		app.Get("/", healthHandler.Root)
	}

	// Graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().
		Str("port", cfg.Port).
		Str("environment", cfg.Environment).
		Str("provider", provider.Name()).
		Str("store", memoryService.Store()).
		Int("price_sources", len(sources)).
		Msg("Wealth advisor API started")

	waitForShutdown(app, log)
}

func waitForShutdown(app *fiber.App, log zerolog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}
	log.Info().Msg("Server shutdown complete")
}
