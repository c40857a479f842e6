// Package memory extracts durable facts about a user from conversation turns
// into the long-term store and recalls them as decision context.
//
// There are three memory kinds, each stored in its own namespace per user:
//
//	profile       one record keyed "user_profile", merged on every update
//	instructions  one record per saved instruction, keyed by a fresh uuid
//	projects      one record per saved project, keyed by a fresh uuid
package memory

import (
	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/pkg/storage"
)

// Kind is a memory category.
type Kind string

const (
	KindProfile      Kind = "profile"
	KindInstructions Kind = "instructions"
	KindProjects     Kind = "projects"
)

// Kinds lists every memory kind in the order their actions are bound.
var Kinds = []Kind{KindProfile, KindProjects, KindInstructions}

// ProfileKey is the single key of the profile namespace.
const ProfileKey = "user_profile"

// Action tags the model uses to request an extraction.
const (
	TagProfile      = "UpdateProfileMemory"
	TagInstructions = "UpdateInstructionMemory"
	TagProjects     = "UpdateProjectMemory"

	// TagLegacy is the single memory tool whose update_type argument names
	// the kind.
	TagLegacy = "UpdateMemory"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindProfile, KindInstructions, KindProjects:
		return true
	}
	return false
}

// Tag returns the action tag bound to the model for k.
func (k Kind) Tag() string {
	switch k {
	case KindProfile:
		return TagProfile
	case KindInstructions:
		return TagInstructions
	case KindProjects:
		return TagProjects
	}
	return ""
}

// Namespace returns the store namespace of k for userID.
func (k Kind) Namespace(userID string) storage.Namespace {
	return storage.Namespace{Kind: string(k), UserID: userID}
}

// KindForAction maps an action request to the memory kind it asks to update.
// It accepts the three tags, the bare kind names and the legacy UpdateMemory
// tool with an update_type argument ("user", "profile", "project",
// "projects", "instructions").
func KindForAction(req llm.ActionRequest) (Kind, bool) {
	switch req.Name {
	case TagProfile, string(KindProfile):
		return KindProfile, true
	case TagInstructions, string(KindInstructions):
		return KindInstructions, true
	case TagProjects, string(KindProjects):
		return KindProjects, true
	case TagLegacy:
		t, _ := req.Arguments["update_type"].(string)
		switch t {
		case "user", "profile":
			return KindProfile, true
		case "project", "projects", "todo":
			return KindProjects, true
		case "instructions", "instruction":
			return KindInstructions, true
		}
	}
	return "", false
}

// Specs returns the action specs binding the extractors to the model.
func Specs() []llm.ActionSpec {
	return []llm.ActionSpec{
		{
			Name:        TagProfile,
			Description: "Save personal facts the user just shared about themselves: name, location, job, passions.",
			Parameters:  llm.EmptyParameters,
		},
		{
			Name:        TagProjects,
			Description: "Save a project, task or goal the user just mentioned, with its due date and status if given.",
			Parameters:  llm.EmptyParameters,
		},
		{
			Name:        TagInstructions,
			Description: "Save a preference the user just stated about how you should behave or respond.",
			Parameters:  llm.EmptyParameters,
		},
	}
}
