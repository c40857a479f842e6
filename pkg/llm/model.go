package llm

import (
	"context"
	"encoding/json"
)

// ActionSpec describes an action the model may request: a capability or a
// memory extractor. Parameters is a JSON schema object.
type ActionSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Model is a chat model that may bind actions.
//
// Invoke returns a single assistant message. When actions is empty the model
// must reply with plain text.
type Model interface {
	Invoke(ctx context.Context, messages []Message, actions []ActionSpec) (Message, error)
}

// ModelFunc adapts an ordinary function to the Model interface.
type ModelFunc func(ctx context.Context, messages []Message, actions []ActionSpec) (Message, error)

// Invoke calls f.
func (f ModelFunc) Invoke(ctx context.Context, messages []Message, actions []ActionSpec) (Message, error) {
	return f(ctx, messages, actions)
}

// EmptyParameters is the schema for an action that takes no arguments.
var EmptyParameters = json.RawMessage(`{"type":"object","properties":{}}`)
