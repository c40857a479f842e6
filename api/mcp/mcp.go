// Package mcp provides an MCP (Model Context Protocol) server exposing loom
// conversations and long-term memory as tools.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/loom/pkg/memory"
	"github.com/papercomputeco/loom/pkg/utils"
)

// Agent is the subset of *graph.Engine the tools call.
type Agent interface {
	Advance(ctx context.Context, conversationID, userID, text string) (string, error)
	Memory(ctx context.Context, userID string) (*memory.Snapshot, error)
}

type Config struct {
	// Agent advances conversations and recalls memory.
	Agent Agent

	// Logger is the configured slog logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the chat_advance and memory_show tools.
func NewServer(c Config) (*Server, error) {
	if c.Agent == nil {
		return nil, errors.New("agent is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "loom",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        chatAdvanceToolName,
		Description: chatAdvanceDescription,
	}, s.handleChatAdvance)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        memoryShowToolName,
		Description: memoryShowDescription,
	}, s.handleMemoryShow)

	s.mcpServer = mcpServer

	// Stateless: every request is served by the same server.
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying server, for in-process transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
