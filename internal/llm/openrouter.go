package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"wealth-go-api/internal/models"
)

// OpenRouter completes turns against any OpenAI compatible chat completion
// endpoint, OpenRouter by default.
type OpenRouter struct {
	client      *openai.Client
	model       string
	temperature float32
	maxRounds   int
}

func NewOpenRouter(apiKey, baseURL, model string, temperature float64, maxRounds int) *OpenRouter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenRouter{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: float32(temperature),
		maxRounds:   maxRounds,
	}
}

func (o *OpenRouter) Name() string { return "openrouter" }

func (o *OpenRouter) Complete(ctx context.Context, req Request) (*Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.History {
		role := openai.ChatMessageRoleUser
		if m.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Input})

	tools := make([]openai.Tool, 0, len(req.Tools))
	for _, t := range req.Tools {
		d := t.Declaration()
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  JSONSchema(d.Parameters),
			},
		})
	}

	out := &Response{}
	for round := 0; ; round++ {
		resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       o.model,
			Temperature: o.temperature,
			Messages:    messages,
			Tools:       tools,
		})
		if err != nil {
			return nil, &Error{Provider: o.Name(), Err: err}
		}
		if len(resp.Choices) == 0 {
			return nil, &Error{Provider: o.Name(), Err: errors.New("no choices returned")}
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			out.Text = msg.Content
			return out, nil
		}
		if round >= o.maxRounds {
			return nil, &Error{Provider: o.Name(), Err: ErrToolRounds}
		}

		messages = append(messages, msg)
		for _, tc := range msg.ToolCalls {
			var args map[string]any
			var (
				result string
				record ToolCall
			)
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil && strings.TrimSpace(tc.Function.Arguments) != "" {
				err = fmt.Errorf("invalid arguments for %s: %w", tc.Function.Name, err)
				result, record = errorJSON(err), ToolCall{Name: tc.Function.Name, Error: err.Error()}
			} else {
				result, record = dispatch(ctx, req.Tools, tc.Function.Name, args)
			}
			out.ToolCalls = append(out.ToolCalls, record)
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				Name:       tc.Function.Name,
				ToolCallID: tc.ID,
			})
		}
	}
}

// JSONSchema converts a genai schema to a JSON schema object. genai spells
// types in upper case ("OBJECT"), JSON schema in lower case.
func JSONSchema(s *genai.Schema) map[string]any {
	if s == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	out := map[string]any{}
	if s.Type != "" {
		out["type"] = strings.ToLower(string(s.Type))
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	if s.Items != nil {
		out["items"] = JSONSchema(s.Items)
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = JSONSchema(p)
		}
		out["properties"] = props
	}
	return out
}
