package llm

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message.
type Role string

const (
	RoleSystem       Role = "system"
	RoleUser         Role = "user"
	RoleAssistant    Role = "assistant"
	RoleActionResult Role = "action_result"
)

// Message is one entry of a conversation.
//
// Assistant messages may carry ActionRequests. Action-result messages carry
// ActionResultOf, the id of the request they resolve.
type Message struct {
	ID             string          `json:"id"`
	Role           Role            `json:"role"`
	Content        string          `json:"content"`
	ActionRequests []ActionRequest `json:"action_requests,omitempty"`
	ActionResultOf string          `json:"action_result_of,omitempty"`
	IsError        bool            `json:"is_error,omitempty"`
	CreatedAt      time.Time       `json:"created_at,omitzero"`

	// Usage is reported by providers on assistant replies. It is not
	// persisted with the checkpoint.
	Usage *Usage `json:"-"`
}

// ActionRequest is a model's request to run a named action.
type ActionRequest struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Usage contains token counts reported by a provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// Add accumulates o into u.
func (u *Usage) Add(o *Usage) {
	if o == nil {
		return
	}
	u.PromptTokens += o.PromptTokens
	u.CompletionTokens += o.CompletionTokens
	u.TotalTokens += o.TotalTokens
}

// NewMessageID returns a fresh message or action id.
func NewMessageID() string {
	return uuid.NewString()
}

// NewUserMessage creates a user message.
func NewUserMessage(text string) Message {
	return Message{
		ID:        NewMessageID(),
		Role:      RoleUser,
		Content:   text,
		CreatedAt: time.Now().UTC(),
	}
}

// NewSystemMessage creates a system message. System messages are built per
// model call and never persisted.
func NewSystemMessage(text string) Message {
	return Message{
		Role:    RoleSystem,
		Content: text,
	}
}

// NewAssistantMessage creates an assistant message with no action request.
func NewAssistantMessage(text string) Message {
	return Message{
		ID:        NewMessageID(),
		Role:      RoleAssistant,
		Content:   text,
		CreatedAt: time.Now().UTC(),
	}
}

// NewActionResult creates the message resolving the request with id requestID.
func NewActionResult(requestID, content string, isError bool) Message {
	return Message{
		ID:             NewMessageID(),
		Role:           RoleActionResult,
		Content:        content,
		ActionResultOf: requestID,
		IsError:        isError,
		CreatedAt:      time.Now().UTC(),
	}
}

// FirstAction returns the first action request on m, if any. Only the first
// request of a reply is ever honored.
func (m *Message) FirstAction() (ActionRequest, bool) {
	if len(m.ActionRequests) == 0 {
		return ActionRequest{}, false
	}
	return m.ActionRequests[0], true
}

// HasAction reports whether m requests an action.
func (m *Message) HasAction() bool {
	return len(m.ActionRequests) > 0
}
