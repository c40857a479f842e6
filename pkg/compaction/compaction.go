// Package compaction folds older conversation history into a rolling summary
// so the active window handed to the model stays short.
package compaction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/loom/pkg/fault"
	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/pkg/logger"
)

const (
	// DefaultThreshold is the message count above which a conversation is
	// compacted.
	DefaultThreshold = 10

	// Keep is the number of most recent messages left active after compaction.
	Keep = 2

	// minMessages is the smallest history worth compacting.
	minMessages = Keep + 1
)

// Config configures a Compactor.
type Config struct {
	Model llm.Model

	// Threshold defaults to DefaultThreshold.
	Threshold int

	Logger *slog.Logger

	// Now is the clock stamped into prompts. Defaults to time.Now.
	Now func() time.Time
}

// Result is the outcome of a compaction.
type Result struct {
	// Summary replaces the state's rolling summary.
	Summary string

	// Prune lists the ids of messages to drop, oldest first.
	Prune []string
}

// Compactor summarizes and prunes overlong histories.
type Compactor struct {
	model     llm.Model
	threshold int
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Compactor.
func New(cfg Config) (*Compactor, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("compactor requires a model")
	}

	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Compactor{
		model:     cfg.Model,
		threshold: threshold,
		logger:    logger.OrNop(cfg.Logger),
		now:       now,
	}, nil
}

// Threshold returns the configured message threshold.
func (c *Compactor) Threshold() int {
	return c.threshold
}

// NeedsCompaction reports whether state holds more messages than the threshold.
func (c *Compactor) NeedsCompaction(state *llm.ConversationState) bool {
	return len(state.Messages) > c.threshold
}

// Compact asks the model for an updated summary of state. States with fewer
// than three messages yield a no-op result. state is not modified; see Apply.
func (c *Compactor) Compact(ctx context.Context, state *llm.ConversationState) (*Result, error) {
	const op = "compaction.compact"

	if len(state.Messages) < minMessages {
		return &Result{Summary: state.Summary}, nil
	}

	reply, err := c.model.Invoke(ctx, c.prompt(state), nil)
	if err != nil {
		return nil, fault.Wrap(fault.KindTransient, op, err)
	}

	summary := strings.TrimSpace(reply.Content)
	if summary == "" {
		return nil, fault.Newf(fault.KindMalformedOutput, op, "model returned an empty summary")
	}

	cut := len(state.Messages) - Keep
	prune := make([]string, 0, cut)
	for _, m := range state.Messages[:cut] {
		prune = append(prune, m.ID)
	}

	c.logger.Info("conversation compacted",
		"conversation_id", state.ConversationID,
		"pruned", len(prune),
		"summary_chars", len(summary),
	)

	return &Result{Summary: summary, Prune: prune}, nil
}

// Apply replaces the summary of state and drops the pruned messages.
func Apply(state *llm.ConversationState, res *Result) {
	if res == nil {
		return
	}
	state.Summary = res.Summary
	state.Prune(res.Prune)
}

func (c *Compactor) prompt(state *llm.ConversationState) []llm.Message {
	var sb strings.Builder
	sb.WriteString("Conversation so far:\n\n")
	for _, m := range state.Messages {
		writeLine(&sb, m)
	}
	sb.WriteString("\n")

	if state.Summary != "" {
		sb.WriteString("This is a summary of the conversation to date:\n\n")
		sb.WriteString(state.Summary)
		sb.WriteString("\n\nExtend the summary by taking into account the new messages above.")
	} else {
		sb.WriteString("Create a summary of the conversation above.")
	}

	system := "System time: " + c.now().UTC().Format("2006-01-02T15:04:05Z") +
		"\n\nYou summarize conversations. Keep facts, decisions and open questions. Reply with the summary only."

	return []llm.Message{
		llm.NewSystemMessage(system),
		llm.NewUserMessage(sb.String()),
	}
}

// writeLine renders m as one transcript line. Action traffic is flattened to
// text so the summary call needs no bound actions.
func writeLine(sb *strings.Builder, m llm.Message) {
	switch m.Role {
	case llm.RoleAssistant:
		sb.WriteString("assistant: ")
		sb.WriteString(m.Content)
		if req, ok := m.FirstAction(); ok {
			if m.Content != "" {
				sb.WriteString(" ")
			}
			fmt.Fprintf(sb, "[requested %s]", req.Name)
		}
	case llm.RoleActionResult:
		if m.IsError {
			sb.WriteString("action error: ")
		} else {
			sb.WriteString("action result: ")
		}
		sb.WriteString(m.Content)
	default:
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
	}
	sb.WriteString("\n")
}
