// Package llm talks to chat models. A Provider completes one user turn,
// running the function-call loop against the given tools until the model
// answers in text.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"wealth-go-api/internal/models"
)

// Tool is a function the model may call. The declaration is the genai one;
// providers with another wire format convert it.
type Tool interface {
	Declaration() *genai.FunctionDeclaration
	Call(ctx context.Context, args map[string]any) (string, error)
}

// Request is one user turn with its context.
type Request struct {
	System  string
	History []models.Message
	Input   string
	Tools   []Tool
}

// ToolCall records a function call made while answering.
type ToolCall struct {
	Name  string         `json:"name"`
	Args  map[string]any `json:"args,omitempty"`
	Error string         `json:"error,omitempty"`
}

type Response struct {
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Error is a failure of the model backend, as opposed to a tool failure
// which is reported back to the model.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Provider, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// ErrToolRounds is returned when the model keeps calling tools past the limit.
var ErrToolRounds = errors.New("too many tool rounds")

// dispatch runs the named tool. Unknown tools and tool errors come back as a
// JSON error object the model can read.
func dispatch(ctx context.Context, tools []Tool, name string, args map[string]any) (string, ToolCall) {
	call := ToolCall{Name: name, Args: args}
	for _, t := range tools {
		if t.Declaration().Name != name {
			continue
		}
		out, err := t.Call(ctx, args)
		if err != nil {
			call.Error = err.Error()
			return errorJSON(err), call
		}
		return out, call
	}
	err := fmt.Errorf("unknown function %s", name)
	call.Error = err.Error()
	return errorJSON(err), call
}

func errorJSON(err error) string {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(b)
}

// Declarations lists the declarations of tools.
func Declarations(tools []Tool) []*genai.FunctionDeclaration {
	result := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		result = append(result, t.Declaration())
	}
	return result
}
