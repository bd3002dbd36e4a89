package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LLM providers
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderDemo       = "demo"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	UIDir       string

	// LLM
	LLMProvider       string
	GoogleAPIKey      string
	GeminiModel       string
	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterBaseURL string
	LLMTemperature    float64
	MaxToolRounds     int
	HistoryLimit      int

	// Storage and market data
	FirestoreProject     string
	AlphaVantageKey      string
	CacheTTLHours        int
	MaxConcurrentFetches int

	// Analytics defaults
	RiskFreeRate        float64
	PeriodsPerYear      int
	ConfidenceLevel     float64
	ThresholdAssetClass float64
	ThresholdSector     float64
	ThresholdGeography  float64
	ThresholdHolding    float64
}

// Load reads the configuration from the environment, seeded from a .env file
// when one exists in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "production"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		UIDir:       getEnv("UI_DIR", ""),

		LLMProvider:       strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
		GoogleAPIKey:      getEnv("GOOGLE_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterModel:   getEnv("OPENROUTER_MODEL", "google/gemini-2.0-flash-001"),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		LLMTemperature:    getEnvFloat("LLM_TEMPERATURE", 0.7, &errs),
		MaxToolRounds:     getEnvInt("MAX_TOOL_ROUNDS", 5, &errs),
		HistoryLimit:      getEnvInt("HISTORY_LIMIT", 10, &errs),

		FirestoreProject:     getEnv("FIRESTORE_PROJECT_ID", ""),
		AlphaVantageKey:      getEnv("ALPHA_VANTAGE_KEY", ""),
		CacheTTLHours:        getEnvInt("CACHE_TTL_HOURS", 24, &errs),
		MaxConcurrentFetches: getEnvInt("MAX_CONCURRENT_FETCHES", 10, &errs),

		RiskFreeRate:        getEnvFloat("RISK_FREE_RATE", 0.04, &errs),
		PeriodsPerYear:      getEnvInt("PERIODS_PER_YEAR", 252, &errs),
		ConfidenceLevel:     getEnvFloat("CONFIDENCE_LEVEL", 0.95, &errs),
		ThresholdAssetClass: getEnvFloat("THRESHOLD_ASSET_CLASS", 0.40, &errs),
		ThresholdSector:     getEnvFloat("THRESHOLD_SECTOR", 0.30, &errs),
		ThresholdGeography:  getEnvFloat("THRESHOLD_GEOGRAPHY", 0.50, &errs),
		ThresholdHolding:    getEnvFloat("THRESHOLD_HOLDING", 0.20, &errs),
	}

	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error
	switch c.LLMProvider {
	case ProviderGemini, ProviderOpenRouter, ProviderDemo:
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER must be gemini, openrouter or demo, got %q", c.LLMProvider))
	}
	if c.ConfidenceLevel <= 0 || c.ConfidenceLevel >= 1 {
		errs = append(errs, fmt.Errorf("CONFIDENCE_LEVEL must be in (0, 1), got %v", c.ConfidenceLevel))
	}
	if c.PeriodsPerYear < 0 {
		errs = append(errs, fmt.Errorf("PERIODS_PER_YEAR must not be negative, got %d", c.PeriodsPerYear))
	}
	for name, v := range map[string]float64{
		"THRESHOLD_ASSET_CLASS": c.ThresholdAssetClass,
		"THRESHOLD_SECTOR":      c.ThresholdSector,
		"THRESHOLD_GEOGRAPHY":   c.ThresholdGeography,
		"THRESHOLD_HOLDING":     c.ThresholdHolding,
	} {
		if v <= 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be in (0, 1], got %v", name, v))
		}
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		errs = append(errs, fmt.Errorf("LLM_TEMPERATURE must be in [0, 2], got %v", c.LLMTemperature))
	}
	if c.MaxToolRounds < 1 {
		errs = append(errs, fmt.Errorf("MAX_TOOL_ROUNDS must be at least 1, got %d", c.MaxToolRounds))
	}
	if c.HistoryLimit < 0 {
		errs = append(errs, fmt.Errorf("HISTORY_LIMIT must not be negative, got %d", c.HistoryLimit))
	}
	if c.CacheTTLHours < 1 {
		errs = append(errs, fmt.Errorf("CACHE_TTL_HOURS must be at least 1, got %d", c.CacheTTLHours))
	}
	if c.MaxConcurrentFetches < 1 {
		errs = append(errs, fmt.Errorf("MAX_CONCURRENT_FETCHES must be at least 1, got %d", c.MaxConcurrentFetches))
	}
	return errs
}

// IsDevelopment reports whether the service runs locally.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// EffectiveProvider is the provider that will actually serve chat: a
// provider missing its API key falls back to demo.
func (c *Config) EffectiveProvider() string {
	switch {
	case c.LLMProvider == ProviderGemini && c.GoogleAPIKey == "":
		return ProviderDemo
	case c.LLMProvider == ProviderOpenRouter && c.OpenRouterAPIKey == "":
		return ProviderDemo
	}
	return c.LLMProvider
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64, errs *[]error) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return f
}
