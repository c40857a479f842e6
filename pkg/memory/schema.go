package memory

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

var (
	profileSchema = &jsonschema.Schema{
		Type:        "object",
		Description: "What is known about the user. Omit fields you have no information about.",
		Properties: map[string]*jsonschema.Schema{
			"name":     {Type: "string", Description: "The user's name"},
			"location": {Type: "string", Description: "Where the user lives"},
			"job":      {Type: "string", Description: "The user's job"},
			"passions": {
				Type:        "array",
				Description: "The user's interests and hobbies",
				Items:       &jsonschema.Schema{Type: "string"},
			},
		},
	}

	instructionSchema = &jsonschema.Schema{
		Type:        "object",
		Description: "A preference about how the assistant should behave.",
		Properties: map[string]*jsonschema.Schema{
			"content": {Type: "string", Description: "The instruction, paraphrased in the third person"},
		},
		Required: []string{"content"},
	}

	projectSchema = &jsonschema.Schema{
		Type:        "object",
		Description: "A project, task or goal of the user.",
		Properties: map[string]*jsonschema.Schema{
			"title":       {Type: "string", Description: "Short title"},
			"description": {Type: "string", Description: "What the project is about"},
			"due_date": {
				Types:       []string{"string", "null"},
				Description: "Due date as YYYY-MM-DD, or null",
			},
			"status": {
				Type: "string",
				Enum: []any{StatusPlanned, StatusInProgress, StatusCompleted},
			},
		},
		Required: []string{"title", "status"},
	}
)

func schemaFor(k Kind) string {
	var s *jsonschema.Schema
	switch k {
	case KindProfile:
		s = profileSchema
	case KindInstructions:
		s = instructionSchema
	case KindProjects:
		s = projectSchema
	default:
		return "{}"
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
