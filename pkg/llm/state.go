package llm

import (
	"slices"
	"time"
)

// ConversationState is the durable short-term memory of one conversation:
// its ordered messages and a rolling summary of pruned history.
type ConversationState struct {
	ConversationID string    `json:"conversation_id"`
	Messages       []Message `json:"messages"`
	Summary        string    `json:"summary,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitzero"`
}

// NewConversationState returns an empty state for id.
func NewConversationState(id string) *ConversationState {
	return &ConversationState{ConversationID: id}
}

// Clone returns a deep enough copy that appends and prunes on the copy never
// affect s.
func (s *ConversationState) Clone() *ConversationState {
	c := *s
	c.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		m.ActionRequests = slices.Clone(m.ActionRequests)
		c.Messages[i] = m
	}
	return &c
}

// Append adds m to the end of the conversation.
func (s *ConversationState) Append(m Message) {
	s.Messages = append(s.Messages, m)
	s.UpdatedAt = time.Now().UTC()
}

// PendingAction returns the newest action request that has no action-result.
func (s *ConversationState) PendingAction() (ActionRequest, bool) {
	resolved := make(map[string]bool)
	for i := len(s.Messages) - 1; i >= 0; i-- {
		m := s.Messages[i]
		if m.Role == RoleActionResult {
			resolved[m.ActionResultOf] = true
			continue
		}
		if m.Role != RoleAssistant {
			continue
		}
		if req, ok := m.FirstAction(); ok && !resolved[req.ID] {
			return req, true
		}
	}
	return ActionRequest{}, false
}

// LastUserMessage returns the most recent user message.
func (s *ConversationState) LastUserMessage() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// LastMessage returns the final message of the conversation.
func (s *ConversationState) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Prune removes the messages whose ids are in ids.
func (s *ConversationState) Prune(ids []string) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	s.Messages = slices.DeleteFunc(s.Messages, func(m Message) bool {
		return drop[m.ID]
	})
	s.UpdatedAt = time.Now().UTC()
}

// ModelHistory returns the messages suitable for a provider call: action
// results whose request was pruned are skipped so that every result sent to
// the model follows its request.
func (s *ConversationState) ModelHistory() []Message {
	requested := make(map[string]bool)
	out := make([]Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		switch m.Role {
		case RoleAssistant:
			for _, r := range m.ActionRequests {
				requested[r.ID] = true
			}
		case RoleActionResult:
			if !requested[m.ActionResultOf] {
				continue
			}
		}
		out = append(out, m)
	}
	return out
}

// Turn records one completed Advance call.
type Turn struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Messages       []Message `json:"messages"`
	Reply          string    `json:"reply"`
	Steps          int       `json:"steps"`
	Usage          Usage     `json:"usage"`
}
