// Package ollama implements llm.Model over Ollama's /api/chat endpoint.
package ollama

import (
	"context"
	"net/http"
	"strings"

	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/pkg/llm/provider/wire"
)

const (
	// DefaultBaseURL is a local Ollama server.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultModel is used when Config.Model is empty.
	DefaultModel = "llama3.2"
)

// Config configures a Model.
type Config struct {
	BaseURL     string
	Model       string
	KeepAlive   string
	Temperature *float64
	HTTPClient  *http.Client
}

// Model calls a non-streaming /api/chat.
type Model struct {
	url         string
	model       string
	keepAlive   string
	temperature *float64
	client      *http.Client
}

// New creates a Model.
func New(cfg Config) *Model {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Model{
		url:         strings.TrimSuffix(baseURL, "/") + "/api/chat",
		model:       model,
		keepAlive:   cfg.KeepAlive,
		temperature: cfg.Temperature,
		client:      wire.NewClient(cfg.HTTPClient),
	}
}

// Name returns the model name sent with each request.
func (m *Model) Name() string {
	return m.model
}

// Invoke sends messages and actions and returns the assistant reply.
// Ollama may omit tool call ids; callers assign them.
func (m *Model) Invoke(ctx context.Context, messages []llm.Message, actions []llm.ActionSpec) (llm.Message, error) {
	var resp ollamaResponse
	if err := wire.PostJSON(ctx, m.client, m.url, nil, m.request(messages, actions), &resp); err != nil {
		return llm.Message{}, err
	}

	out := llm.Message{
		Role:    llm.RoleAssistant,
		Content: resp.Message.Content,
	}
	for _, tc := range resp.Message.ToolCalls {
		out.ActionRequests = append(out.ActionRequests, llm.ActionRequest{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	if resp.PromptEvalCount > 0 || resp.EvalCount > 0 {
		out.Usage = &llm.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		}
	}

	return out, nil
}

func (m *Model) request(messages []llm.Message, actions []llm.ActionSpec) *ollamaRequest {
	req := &ollamaRequest{
		Model:     m.model,
		Messages:  make([]ollamaMessage, 0, len(messages)),
		KeepAlive: m.keepAlive,
	}
	if m.temperature != nil {
		req.Options = &ollamaOptions{Temperature: m.temperature}
	}

	// tool result messages carry the tool name, not the call id
	names := make(map[string]string)

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleAssistant:
			out := ollamaMessage{Role: "assistant", Content: msg.Content}
			for i, r := range msg.ActionRequests {
				names[r.ID] = r.Name
				var tc ollamaToolCall
				tc.ID = r.ID
				tc.Function.Index = i
				tc.Function.Name = r.Name
				tc.Function.Arguments = r.Arguments
				if tc.Function.Arguments == nil {
					tc.Function.Arguments = map[string]any{}
				}
				out.ToolCalls = append(out.ToolCalls, tc)
			}
			req.Messages = append(req.Messages, out)

		case llm.RoleActionResult:
			req.Messages = append(req.Messages, ollamaMessage{
				Role:     "tool",
				Content:  msg.Content,
				ToolName: names[msg.ActionResultOf],
			})

		default:
			req.Messages = append(req.Messages, ollamaMessage{Role: string(msg.Role), Content: msg.Content})
		}
	}

	for _, a := range actions {
		req.Tools = append(req.Tools, ollamaTool{
			Type: "function",
			Function: ollamaFunction{
				Name:        a.Name,
				Description: a.Description,
				Parameters:  wire.Parameters(a.Parameters),
			},
		})
	}

	return req
}
