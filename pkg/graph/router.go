package graph

import (
	"strings"

	"github.com/papercomputeco/loom/pkg/capability"
	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/pkg/memory"
)

// NodeID identifies the node an assistant message routes to.
type NodeID string

// Terminal ends the turn with the assistant's text as the reply.
const Terminal NodeID = "__end__"

const (
	capabilityPrefix = "capability:"
	extractorPrefix  = "extract:"
)

// CapabilityNode returns the node id of the capability called name.
func CapabilityNode(name string) NodeID {
	return NodeID(capabilityPrefix + name)
}

// ExtractorNode returns the node id of the extractor for kind.
func ExtractorNode(kind memory.Kind) NodeID {
	return NodeID(extractorPrefix + string(kind))
}

// Capability returns the capability name of a capability node.
func (id NodeID) Capability() (string, bool) {
	return strings.CutPrefix(string(id), capabilityPrefix)
}

// Extractor returns the memory kind of an extractor node.
func (id NodeID) Extractor() (memory.Kind, bool) {
	k, ok := strings.CutPrefix(string(id), extractorPrefix)
	return memory.Kind(k), ok
}

// Router maps the last assistant message to the next node. It has no side
// effects and never fails: anything it does not recognize is Terminal.
type Router struct {
	registry *capability.Registry
}

// NewRouter creates a Router over registry. A nil registry routes only
// extractor actions.
func NewRouter(registry *capability.Registry) *Router {
	return &Router{registry: registry}
}

// Registry returns the capabilities the router dispatches to. May be nil.
func (r *Router) Registry() *capability.Registry {
	return r.registry
}

// Route returns the node for msg. Only the first action request is honored.
func (r *Router) Route(msg llm.Message) NodeID {
	if msg.Role != llm.RoleAssistant {
		return Terminal
	}

	req, ok := msg.FirstAction()
	if !ok {
		return Terminal
	}

	if r.registry.Has(req.Name) {
		return CapabilityNode(req.Name)
	}

	if kind, ok := memory.KindForAction(req); ok {
		return ExtractorNode(kind)
	}

	return Terminal
}

// reserved reports whether name is claimed by an extractor action.
func reserved(name string) bool {
	_, ok := memory.KindForAction(llm.ActionRequest{Name: name})
	return ok || name == memory.TagLegacy
}
