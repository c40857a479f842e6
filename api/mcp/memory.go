package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/loom/pkg/memory"
)

var (
	memoryShowToolName    = "memory_show"
	memoryShowDescription = "Show everything loom remembers about a user: their profile, their projects with status and due date, and their instructions for how the assistant should behave."
)

// MemoryShowInput represents the input arguments for the MCP memory_show tool.
type MemoryShowInput struct {
	UserID string `json:"user_id" jsonschema:"the user whose memory is shown"`
}

// MemoryShowOutput wraps the user's memory snapshot.
type MemoryShowOutput struct {
	Memory *memory.Snapshot `json:"memory"`
}

func (s *Server) handleMemoryShow(ctx context.Context, _ *mcp.CallToolRequest, input MemoryShowInput) (*mcp.CallToolResult, MemoryShowOutput, error) {
	if input.UserID == "" {
		return errorResult("user_id is required"), MemoryShowOutput{}, nil
	}

	snap, err := s.config.Agent.Memory(ctx, input.UserID)
	if err != nil {
		return errorResult(fmt.Sprintf("Memory recall failed: %v", err)), MemoryShowOutput{}, nil
	}

	output := MemoryShowOutput{Memory: normalize(snap)}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to serialize memory: %v", err)), MemoryShowOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

// normalize replaces nil sections so they encode as empty values, not null.
func normalize(snap *memory.Snapshot) *memory.Snapshot {
	out := *snap
	if out.Profile == nil {
		out.Profile = &memory.Profile{}
	}
	if out.Instructions == nil {
		out.Instructions = []memory.StoredInstruction{}
	}
	if out.Projects == nil {
		out.Projects = []memory.StoredProject{}
	}
	return &out
}
