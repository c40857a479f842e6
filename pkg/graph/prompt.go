package graph

import (
	"strings"
	"time"

	"github.com/papercomputeco/loom/pkg/memory"
)

const decisionPreamble = `You are a helpful assistant with long-term memory about the user.

When the user shares personal facts, a project or task, or a preference about how you should behave, call the matching memory action before answering.
Call at most one action per reply. When no action is needed, answer the user directly.`

func (e *Engine) systemPrompt(snap *memory.Snapshot, summary string) string {
	var sb strings.Builder

	sb.WriteString("System time: ")
	sb.WriteString(e.now().UTC().Format(time.RFC3339))
	sb.WriteString("\n\n")
	sb.WriteString(decisionPreamble)

	if block := snap.Render(); block != "" {
		sb.WriteString("\n\n")
		sb.WriteString(block)
	}

	if summary = strings.TrimSpace(summary); summary != "" {
		sb.WriteString("\n\n<conversation_summary>\n")
		sb.WriteString(summary)
		sb.WriteString("\n</conversation_summary>")
	}

	return sb.String()
}
