package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"wealth-go-api/internal/models"
)

type echoTool struct {
	name string
	err  error
	got  map[string]any
}

func (e *echoTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        e.name,
		Description: "Echo the arguments back.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"x":    {Type: genai.TypeNumber, Description: "a number"},
				"tags": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString, Enum: []string{"a", "b"}}},
			},
			Required: []string{"x"},
		},
	}
}

func (e *echoTool) Call(ctx context.Context, args map[string]any) (string, error) {
	e.got = args
	if e.err != nil {
		return "", e.err
	}
	return fmt.Sprintf("echo %v", args["x"]), nil
}

func TestJSONSchema(t *testing.T) {
	got := JSONSchema((&echoTool{name: "echo"}).Declaration().Parameters)
	assert.Equal(t, map[string]any{
		"type":     "object",
		"required": []string{"x"},
		"properties": map[string]any{
			"x": map[string]any{"type": "number", "description": "a number"},
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string", "enum": []string{"a", "b"}},
			},
		},
	}, got)

	assert.Equal(t, "object", JSONSchema(nil)["type"])
}

func TestDispatch(t *testing.T) {
	ok := &echoTool{name: "echo"}
	failing := &echoTool{name: "fail", err: errors.New("bad portfolio")}
	tools := []Tool{ok, failing}

	out, call := dispatch(context.Background(), tools, "echo", map[string]any{"x": 1.0})
	assert.Equal(t, "echo 1", out)
	assert.Empty(t, call.Error)

	out, call = dispatch(context.Background(), tools, "fail", nil)
	assert.JSONEq(t, `{"error":"bad portfolio"}`, out)
	assert.Equal(t, "bad portfolio", call.Error)

	out, _ = dispatch(context.Background(), tools, "missing", nil)
	assert.JSONEq(t, `{"error":"unknown function missing"}`, out)
}

func TestDemoRoutesKeywords(t *testing.T) {
	div := &echoTool{name: "analyze_diversification"}
	tol := &echoTool{name: "assess_risk_tolerance"}
	risk := &echoTool{name: "calculate_portfolio_risk"}
	req := Request{Tools: []Tool{div, tol, risk}}

	req.Input = "Can you check my DIVERSIFICATION?"
	resp, err := NewDemo().Complete(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "analyze_diversification", resp.ToolCalls[0].Name)
	assert.Len(t, div.got["portfolio"], 3)

	req.Input = "assess my risk tolerance"
	resp, err = NewDemo().Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "assess_risk_tolerance", resp.ToolCalls[0].Name)

	req.Input = "what is the risk of my portfolio"
	resp, err = NewDemo().Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "calculate_portfolio_risk", resp.ToolCalls[0].Name)

	req.Input = "hello"
	resp, err = NewDemo().Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, resp.ToolCalls)
	assert.Contains(t, resp.Text, "demo mode")
}

func TestOpenRouterToolLoop(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role       string `json:"role"`
				Content    string `json:"content"`
				ToolCallID string `json:"tool_call_id"`
			} `json:"messages"`
			Tools []struct {
				Function struct {
					Name       string         `json:"name"`
					Parameters map[string]any `json:"parameters"`
				} `json:"function"`
			} `json:"tools"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body.Model)
		if assert.Len(t, body.Tools, 1) {
			assert.Equal(t, "object", body.Tools[0].Function.Parameters["type"])
		}

		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles(body.Messages))
			fmt.Fprint(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"finish_reason":"tool_calls","message":{"role":"assistant","content":"","tool_calls":[{"id":"call_1","type":"function","function":{"name":"echo","arguments":"{\"x\":2}"}}]}}]}`)
			return
		}
		last := body.Messages[len(body.Messages)-1]
		assert.Equal(t, "tool", last.Role)
		assert.Equal(t, "call_1", last.ToolCallID)
		assert.Equal(t, "echo 2", last.Content)
		fmt.Fprint(w, `{"id":"2","object":"chat.completion","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Your number is 2."}}]}`)
	}))
	defer srv.Close()

	echo := &echoTool{name: "echo"}
	p := NewOpenRouter("sk-test", srv.URL, "test-model", 0.2, 3)
	resp, err := p.Complete(context.Background(), Request{
		System:  "be brief",
		History: []models.Message{{Role: models.RoleUser, Content: "hi"}, {Role: models.RoleAssistant, Content: "hello"}},
		Input:   "echo 2",
		Tools:   []Tool{echo},
	})
	require.NoError(t, err)
	assert.Equal(t, "Your number is 2.", resp.Text)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "echo", resp.ToolCalls[0].Name)
	assert.Equal(t, int32(2), calls.Load())
}

func roles[T any](msgs []T) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		b, _ := json.Marshal(m)
		var r struct {
			Role string `json:"role"`
		}
		_ = json.Unmarshal(b, &r)
		out = append(out, r.Role)
	}
	return out
}

func TestOpenRouterStopsAfterMaxRounds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","tool_calls":[{"id":"c","type":"function","function":{"name":"echo","arguments":"{}"}}]}}]}`)
	}))
	defer srv.Close()

	_, err := NewOpenRouter("k", srv.URL, "m", 0, 2).Complete(context.Background(), Request{Input: "loop", Tools: []Tool{&echoTool{name: "echo"}}})
	var llmErr *Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, "openrouter", llmErr.Provider)
	assert.ErrorIs(t, err, ErrToolRounds)
}

func TestOpenRouterBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid key","type":"auth"}}`)
	}))
	defer srv.Close()

	_, err := NewOpenRouter("k", srv.URL, "m", 0, 2).Complete(context.Background(), Request{Input: "hi"})
	var llmErr *Error
	assert.ErrorAs(t, err, &llmErr)
}

func TestGeminiHistoryAndConfig(t *testing.T) {
	history := geminiHistory([]models.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
	})
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, "hello", history[1].Parts[0].Text)

	g := &Gemini{temperature: 0.5, maxRounds: 3}
	cfg := g.config(Request{System: "be brief", Tools: []Tool{&echoTool{name: "echo"}}})
	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "be brief", cfg.SystemInstruction.Parts[0].Text)
	require.Len(t, cfg.Tools, 1)
	assert.Equal(t, "echo", cfg.Tools[0].FunctionDeclarations[0].Name)
	assert.Equal(t, float32(0.5), *cfg.Temperature)
}
