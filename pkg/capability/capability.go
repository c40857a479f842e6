// Package capability defines external actions the model can invoke and the
// immutable registry the router dispatches against.
package capability

import (
	"context"
	"encoding/json"

	"github.com/papercomputeco/loom/pkg/llm"
)

// Capability is an external action exposed to the model.
type Capability interface {
	// Name is the identifier the model uses to request the capability.
	Name() string

	// Description tells the model when to use it.
	Description() string

	// Parameters is the JSON schema of the arguments object.
	Parameters() json.RawMessage

	// Invoke runs the capability. The returned text becomes the content of
	// the action-result message.
	Invoke(ctx context.Context, args map[string]any) (string, error)
}

// InvokeFunc is the callable behind a Func capability.
type InvokeFunc func(ctx context.Context, args map[string]any) (string, error)

// Func is a Capability built from a function.
type Func struct {
	name        string
	description string
	parameters  json.RawMessage
	fn          InvokeFunc
}

// NewFunc returns a Capability named name. A nil parameters schema means the
// capability takes no arguments.
func NewFunc(name, description string, parameters json.RawMessage, fn InvokeFunc) *Func {
	if len(parameters) == 0 {
		parameters = llm.EmptyParameters
	}
	return &Func{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

func (f *Func) Name() string                { return f.name }
func (f *Func) Description() string         { return f.description }
func (f *Func) Parameters() json.RawMessage { return f.parameters }

func (f *Func) Invoke(ctx context.Context, args map[string]any) (string, error) {
	return f.fn(ctx, args)
}

// Spec returns the action spec binding c to the model.
func Spec(c Capability) llm.ActionSpec {
	return llm.ActionSpec{
		Name:        c.Name(),
		Description: c.Description(),
		Parameters:  c.Parameters(),
	}
}

type invocationKey struct{}

// Invocation identifies the turn a capability runs in.
type Invocation struct {
	ConversationID string
	UserID         string
}

// WithInvocation returns a context carrying inv.
func WithInvocation(ctx context.Context, inv Invocation) context.Context {
	return context.WithValue(ctx, invocationKey{}, inv)
}

// InvocationFrom returns the invocation stored in ctx.
func InvocationFrom(ctx context.Context) (Invocation, bool) {
	inv, ok := ctx.Value(invocationKey{}).(Invocation)
	return inv, ok
}
