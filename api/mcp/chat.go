package mcp

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	chatAdvanceToolName    = "chat_advance"
	chatAdvanceDescription = "Send a user message to a loom conversation and return the assistant's reply. The assistant remembers the user's profile, projects and instructions across conversations. Omit conversation_id to start a new conversation; reuse the returned id to continue it."
)

// ChatAdvanceInput represents the input arguments for the MCP chat_advance tool.
type ChatAdvanceInput struct {
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"the conversation to continue; a new one is started when empty"`
	UserID         string `json:"user_id" jsonschema:"the user whose long-term memory is used"`
	Text           string `json:"text" jsonschema:"the user message"`
}

// ChatAdvanceOutput is the reply of one turn.
type ChatAdvanceOutput struct {
	ConversationID string `json:"conversation_id"`
	Reply          string `json:"reply"`
}

func (s *Server) handleChatAdvance(ctx context.Context, _ *mcp.CallToolRequest, input ChatAdvanceInput) (*mcp.CallToolResult, ChatAdvanceOutput, error) {
	if input.UserID == "" || input.Text == "" {
		return errorResult("user_id and text are required"), ChatAdvanceOutput{}, nil
	}

	id := input.ConversationID
	if id == "" {
		id = uuid.NewString()
	}

	reply, err := s.config.Agent.Advance(ctx, id, input.UserID, input.Text)
	if err != nil {
		s.config.Logger.Warn("chat_advance failed", "conversation_id", id, "error", err)
		return errorResult(fmt.Sprintf("Turn failed: %v", err)), ChatAdvanceOutput{}, nil
	}

	output := ChatAdvanceOutput{ConversationID: id, Reply: reply}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: reply},
		},
	}, output, nil
}
