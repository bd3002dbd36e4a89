package advisor

import (
	"context"
	"fmt"

	"wealth-go-api/internal/config"
	"wealth-go-api/internal/llm"
)

// NewProvider builds the chat backend cfg selects. A provider without its
// API key degrades to the demo provider.
func NewProvider(ctx context.Context, cfg *config.Config) (llm.Provider, error) {
	switch cfg.EffectiveProvider() {
	case config.ProviderGemini:
		g, err := llm.NewGemini(ctx, cfg.GoogleAPIKey, cfg.GeminiModel, cfg.LLMTemperature, cfg.MaxToolRounds)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		return g, nil
	case config.ProviderOpenRouter:
		return llm.NewOpenRouter(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, cfg.OpenRouterModel, cfg.LLMTemperature, cfg.MaxToolRounds), nil
	default:
		return llm.NewDemo(), nil
	}
}
