package memory

import (
	"encoding/json"
	"strings"

	"github.com/papercomputeco/loom/pkg/llm"
)

func (e *Extractor) prompt(userText string, prior *Profile) []llm.Message {
	var sb strings.Builder
	sb.WriteString("System time: ")
	sb.WriteString(e.now().UTC().Format("2006-01-02T15:04:05Z"))
	sb.WriteString("\n\n")

	switch e.kind {
	case KindProfile:
		sb.WriteString("Update the user's profile with any personal facts in their latest message. ")
		sb.WriteString("Return the complete profile. Omit fields you know nothing about.\n\n")
	case KindInstructions:
		sb.WriteString("The user stated a preference about how you should behave. ")
		sb.WriteString("Paraphrase it as a short instruction to yourself.\n\n")
	case KindProjects:
		sb.WriteString("The user mentioned a project, task or goal. ")
		sb.WriteString("Describe it as a project record. Resolve relative dates against the system time.\n\n")
	}

	sb.WriteString("JSON schema:\n")
	sb.WriteString(schemaFor(e.kind))
	sb.WriteString("\n\n")

	if e.kind == KindProfile {
		sb.WriteString("Existing profile:\n")
		if prior == nil {
			sb.WriteString("{}")
		} else {
			b, _ := json.Marshal(prior)
			sb.Write(b)
		}
		sb.WriteString("\n\n")
	}

	sb.WriteString("Return only the JSON object, with no other text.")

	return []llm.Message{
		llm.NewSystemMessage(sb.String()),
		llm.NewUserMessage(userText),
	}
}
