package testutils

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/papercomputeco/loom/pkg/llm"
)

// ErrScriptExhausted is returned by ScriptedModel when no reply is queued.
var ErrScriptExhausted = errors.New("scripted model: no reply queued")

// ScriptedModel is an llm.Model that returns queued replies in order and
// records every call it receives.
type ScriptedModel struct {
	mu      sync.Mutex
	replies []scriptedReply

	// Calls holds the messages of each Invoke, in call order.
	Calls [][]llm.Message

	// Actions holds the action specs bound on each Invoke.
	Actions [][]llm.ActionSpec
}

type scriptedReply struct {
	msg llm.Message
	err error
}

// NewScriptedModel creates an empty scripted model.
func NewScriptedModel() *ScriptedModel {
	return &ScriptedModel{}
}

// PushText queues a plain assistant reply.
func (m *ScriptedModel) PushText(text string) *ScriptedModel {
	return m.Push(llm.Message{Role: llm.RoleAssistant, Content: text})
}

// PushAction queues an assistant reply carrying one action request.
func (m *ScriptedModel) PushAction(name string, args map[string]any, text string) *ScriptedModel {
	return m.Push(llm.Message{
		Role:    llm.RoleAssistant,
		Content: text,
		ActionRequests: []llm.ActionRequest{{
			ID:        llm.NewMessageID(),
			Name:      name,
			Arguments: args,
		}},
	})
}

// PushError queues a failed call.
func (m *ScriptedModel) PushError(err error) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, scriptedReply{err: err})
	return m
}

// Push queues an arbitrary reply.
func (m *ScriptedModel) Push(msg llm.Message) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, scriptedReply{msg: msg})
	return m
}

// Invoke returns the next queued reply.
func (m *ScriptedModel) Invoke(ctx context.Context, messages []llm.Message, actions []llm.ActionSpec) (llm.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, slices.Clone(messages))
	m.Actions = append(m.Actions, slices.Clone(actions))

	if err := ctx.Err(); err != nil {
		return llm.Message{}, err
	}
	if len(m.replies) == 0 {
		return llm.Message{}, ErrScriptExhausted
	}

	next := m.replies[0]
	m.replies = m.replies[1:]
	return next.msg, next.err
}

// CallCount returns the number of Invoke calls so far.
func (m *ScriptedModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Remaining returns the number of queued replies not yet consumed.
func (m *ScriptedModel) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.replies)
}

// LastCall returns the messages of the most recent Invoke.
func (m *ScriptedModel) LastCall() []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return nil
	}
	return m.Calls[len(m.Calls)-1]
}
