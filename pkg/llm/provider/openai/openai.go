// Package openai implements llm.Model over OpenAI's Chat Completions API.
// Any endpoint speaking the same wire format works through BaseURL.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/papercomputeco/loom/pkg/fault"
	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/pkg/llm/provider/wire"
)

const (
	// DefaultBaseURL is the public OpenAI API.
	DefaultBaseURL = "https://api.openai.com"

	// DefaultModel is used when Config.Model is empty.
	DefaultModel = "gpt-4o-mini"
)

// Config configures a Model.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature *float64
	HTTPClient  *http.Client
}

// Model calls the Chat Completions endpoint.
type Model struct {
	url         string
	apiKey      string
	model       string
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
		url:         strings.TrimSuffix(baseURL, "/") + "/v1/chat/completions",
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: cfg.Temperature,
		client:      wire.NewClient(cfg.HTTPClient),
	}
}

// Name returns the model name sent with each request.
func (m *Model) Name() string {
	return m.model
}

// Invoke sends messages and actions and returns the assistant reply.
func (m *Model) Invoke(ctx context.Context, messages []llm.Message, actions []llm.ActionSpec) (llm.Message, error) {
	headers := map[string]string{}
	if m.apiKey != "" {
		headers["Authorization"] = "Bearer " + m.apiKey
	}

	var resp openaiResponse
	if err := wire.PostJSON(ctx, m.client, m.url, headers, m.request(messages, actions), &resp); err != nil {
		return llm.Message{}, err
	}

	return parseResponse(&resp)
}

func (m *Model) request(messages []llm.Message, actions []llm.ActionSpec) *openaiRequest {
	req := &openaiRequest{
		Model:       m.model,
		Messages:    make([]openaiMessage, 0, len(messages)),
		Temperature: m.temperature,
	}

	for _, msg := range messages {
		req.Messages = append(req.Messages, toMessage(msg))
	}

	if len(actions) > 0 {
		parallel := false
		req.ParallelToolCalls = &parallel
		for _, a := range actions {
			req.Tools = append(req.Tools, openaiTool{
				Type: "function",
				Function: openaiFunction{
					Name:        a.Name,
					Description: a.Description,
					Parameters:  wire.Parameters(a.Parameters),
				},
			})
		}
	}

	return req
}

func toMessage(msg llm.Message) openaiMessage {
	content := msg.Content

	switch msg.Role {
	case llm.RoleActionResult:
		return openaiMessage{Role: "tool", Content: &content, ToolCallID: msg.ActionResultOf}

	case llm.RoleAssistant:
		out := openaiMessage{Role: "assistant"}
		if content != "" || len(msg.ActionRequests) == 0 {
			out.Content = &content
		}
		for _, r := range msg.ActionRequests {
			args, _ := json.Marshal(r.Arguments)
			if r.Arguments == nil {
				args = []byte("{}")
			}
			tc := openaiToolCall{ID: r.ID, Type: "function"}
			tc.Function.Name = r.Name
			tc.Function.Arguments = string(args)
			out.ToolCalls = append(out.ToolCalls, tc)
		}
		return out

	default:
		return openaiMessage{Role: string(msg.Role), Content: &content}
	}
}

func parseResponse(resp *openaiResponse) (llm.Message, error) {
	if len(resp.Choices) == 0 {
		return llm.Message{}, fault.Newf(fault.KindMalformedOutput, "openai.invoke", "response has no choices")
	}

	choice := resp.Choices[0].Message
	out := llm.Message{Role: llm.RoleAssistant}
	if choice.Content != nil {
		out.Content = *choice.Content
	}

	for _, tc := range choice.ToolCalls {
		var args map[string]any
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return llm.Message{}, fault.New(fault.KindMalformedOutput, "openai.invoke",
					fmt.Errorf("tool call %q arguments: %w", tc.Function.Name, err))
			}
		}
		out.ActionRequests = append(out.ActionRequests, llm.ActionRequest{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	if resp.Usage != nil {
		out.Usage = &llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	return out, nil
}
