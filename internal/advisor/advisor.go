// Package advisor runs the conversational wealth advisor: it loads what is
// remembered about the user, hands the turn to the configured model with the
// analysis tools and records both sides of the exchange.
package advisor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"wealth-go-api/internal/format"
	"wealth-go-api/internal/llm"
	"wealth-go-api/internal/metrics"
	"wealth-go-api/internal/models"
	"wealth-go-api/internal/services"
)

// ErrEmptyMessage is returned for blank chat input.
var ErrEmptyMessage = errors.New("message is required")

// DefaultHistoryLimit is how many past messages are replayed to the model.
const DefaultHistoryLimit = 10

// Reply is the advisor's answer to one message.
type Reply struct {
	Text      string         `json:"response"`
	HTML      string         `json:"html,omitempty"`
	ToolCalls []llm.ToolCall `json:"tool_calls,omitempty"`
}

type Advisor struct {
	provider     llm.Provider
	memory       *services.MemoryService
	tools        []llm.Tool
	historyLimit int
	metrics      *metrics.Metrics
	log          zerolog.Logger
}

func New(provider llm.Provider, memory *services.MemoryService, analysis *services.AnalysisService, historyLimit int, m *metrics.Metrics, log zerolog.Logger) *Advisor {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Advisor{
		provider:     provider,
		memory:       memory,
		tools:        Tools(analysis, memory, m),
		historyLimit: historyLimit,
		metrics:      m,
		log:          log.With().Str("component", "advisor").Str("provider", provider.Name()).Logger(),
	}
}

// Provider names the model backend answering chats.
func (a *Advisor) Provider() string { return a.provider.Name() }

// Chat answers message for userID. The user message is recorded before the
// model is called, the reply only when the model answers.
func (a *Advisor) Chat(ctx context.Context, userID, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	history, err := a.memory.RecentMessages(ctx, userID, a.historyLimit)
	if err != nil {
		return nil, err
	}
	profile, err := a.memory.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := a.memory.AddMessage(ctx, userID, models.RoleUser, message); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := a.provider.Complete(withUser(ctx, userID), llm.Request{
		System:  buildSystemPrompt(profile),
		History: history,
		Input:   message,
		Tools:   a.tools,
	})
	a.metrics.ObserveLLM(a.provider.Name(), err, time.Since(start))
	if err != nil {
		a.log.Error().Err(err).Str("user_id", userID).Msg("Model call failed")
		return nil, err
	}

	names := make([]string, 0, len(resp.ToolCalls))
	for _, c := range resp.ToolCalls {
		names = append(names, c.Name)
	}
	a.log.Info().
		Str("user_id", userID).
		Strs("tools", names).
		Dur("latency", time.Since(start)).
		Msg("Chat answered")

	if _, err := a.memory.AddMessage(ctx, userID, models.RoleAssistant, resp.Text); err != nil {
		return nil, err
	}

	reply := &Reply{Text: resp.Text, ToolCalls: resp.ToolCalls}
	if html, err := format.HTML(resp.Text); err != nil {
		a.log.Warn().Err(err).Msg("Failed to render reply as HTML")
	} else {
		reply.HTML = html
	}
	return reply, nil
}
