// Package anthropic implements llm.Model over Anthropic's Messages API.
package anthropic

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
	// DefaultBaseURL is the public Anthropic API.
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultModel is used when Config.Model is empty.
	DefaultModel = "claude-haiku-4-5-20251001"

	// DefaultMaxTokens caps each reply.
	DefaultMaxTokens = 1024

	apiVersion = "2023-06-01"
)

// Config configures a Model.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature *float64
	HTTPClient  *http.Client
}

// Model calls the Messages endpoint.
type Model struct {
	url         string
	apiKey      string
	model       string
	maxTokens   int
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
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &Model{
		url:         strings.TrimSuffix(baseURL, "/") + "/v1/messages",
		apiKey:      cfg.APIKey,
		model:       model,
		maxTokens:   maxTokens,
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
	headers := map[string]string{
		"anthropic-version": apiVersion,
	}
	if m.apiKey != "" {
		headers["x-api-key"] = m.apiKey
	}

	var resp anthropicResponse
	if err := wire.PostJSON(ctx, m.client, m.url, headers, m.request(messages, actions), &resp); err != nil {
		return llm.Message{}, err
	}

	return parseResponse(&resp)
}

func (m *Model) request(messages []llm.Message, actions []llm.ActionSpec) *anthropicRequest {
	req := &anthropicRequest{
		Model:       m.model,
		MaxTokens:   m.maxTokens,
		Temperature: m.temperature,
	}

	var system []string
	for _, msg := range messages {
		if msg.Role == llm.RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		req.Messages = appendMessage(req.Messages, toMessage(msg))
	}
	req.System = strings.Join(system, "\n\n")

	if len(actions) > 0 {
		req.ToolChoice = &anthropicChoice{Type: "auto", DisableParallelToolUse: true}
		for _, a := range actions {
			req.Tools = append(req.Tools, anthropicTool{
				Name:        a.Name,
				Description: a.Description,
				InputSchema: wire.Parameters(a.Parameters),
			})
		}
	}

	return req
}

// appendMessage merges consecutive messages of one role, since the API
// requires user and assistant turns to alternate.
func appendMessage(msgs []anthropicMessage, next anthropicMessage) []anthropicMessage {
	if n := len(msgs); n > 0 && msgs[n-1].Role == next.Role {
		msgs[n-1].Content = append(msgs[n-1].Content, next.Content...)
		return msgs
	}
	return append(msgs, next)
}

func toMessage(msg llm.Message) anthropicMessage {
	switch msg.Role {
	case llm.RoleActionResult:
		return anthropicMessage{
			Role: "user",
			Content: []anthropicContentBlock{{
				Type:      "tool_result",
				ToolUseID: msg.ActionResultOf,
				Content:   msg.Content,
				IsError:   msg.IsError,
			}},
		}

	case llm.RoleAssistant:
		out := anthropicMessage{Role: "assistant"}
		if msg.Content != "" {
			out.Content = append(out.Content, anthropicContentBlock{Type: "text", Text: msg.Content})
		}
		for _, r := range msg.ActionRequests {
			input, _ := json.Marshal(r.Arguments)
			if r.Arguments == nil {
				input = []byte("{}")
			}
			out.Content = append(out.Content, anthropicContentBlock{
				Type:  "tool_use",
				ID:    r.ID,
				Name:  r.Name,
				Input: input,
			})
		}
		return out

	default:
		return anthropicMessage{
			Role:    "user",
			Content: []anthropicContentBlock{{Type: "text", Text: msg.Content}},
		}
	}
}

func parseResponse(resp *anthropicResponse) (llm.Message, error) {
	if resp.Type != "" && resp.Type != "message" {
		return llm.Message{}, fault.Newf(fault.KindMalformedOutput, "anthropic.invoke", "unexpected response type %q", resp.Type)
	}

	out := llm.Message{Role: llm.RoleAssistant}
	var text []string
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text = append(text, block.Text)
		case "tool_use":
			var args map[string]any
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					return llm.Message{}, fault.New(fault.KindMalformedOutput, "anthropic.invoke",
						fmt.Errorf("tool_use %q input: %w", block.Name, err))
				}
			}
			out.ActionRequests = append(out.ActionRequests, llm.ActionRequest{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: args,
			})
		}
	}
	out.Content = strings.Join(text, "")

	if resp.Usage != nil {
		out.Usage = &llm.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		}
	}

	return out, nil
}
