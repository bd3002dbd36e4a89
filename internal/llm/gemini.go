package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"wealth-go-api/internal/models"
)

// Gemini completes turns with the Gemini API through a genai chat session.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
	maxRounds   int
}

func NewGemini(ctx context.Context, apiKey, model string, temperature float64, maxRounds int) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{
		client:      client,
		model:       model,
		temperature: float32(temperature),
		maxRounds:   maxRounds,
	}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Complete(ctx context.Context, req Request) (*Response, error) {
	chat, err := g.client.Chats.Create(ctx, g.model, g.config(req), geminiHistory(req.History))
	if err != nil {
		return nil, &Error{Provider: g.Name(), Err: err}
	}

	out := &Response{}
	parts := []*genai.Part{{Text: req.Input}}
	for round := 0; ; round++ {
		resp, err := chat.Send(ctx, parts...)
		if err != nil {
			return nil, &Error{Provider: g.Name(), Err: err}
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return nil, &Error{Provider: g.Name(), Err: errors.New("empty response")}
		}

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			out.Text = resp.Text()
			return out, nil
		}
		if round >= g.maxRounds {
			return nil, &Error{Provider: g.Name(), Err: ErrToolRounds}
		}

		// Answer every call of this round, then send the answers back.
		parts = make([]*genai.Part, 0, len(calls))
		for _, fc := range calls {
			result, record := dispatch(ctx, req.Tools, fc.Name, fc.Args)
			out.ToolCalls = append(out.ToolCalls, record)
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       fc.ID,
				Name:     fc.Name,
				Response: map[string]any{"output": result},
			}})
		}
	}
}

func (g *Gemini) config(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: Declarations(req.Tools)}}
	}
	return cfg
}

// geminiHistory maps stored messages to chat history; the assistant speaks
// as the "model" role.
func geminiHistory(history []models.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := genai.Role(genai.RoleUser)
		if m.Role == models.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}
