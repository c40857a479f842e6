package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/papercomputeco/loom/api/mcp"
	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/pkg/logger"
	"github.com/papercomputeco/loom/pkg/memory"
)

// Agent advances conversations and exposes their state.
// *graph.Engine satisfies it.
type Agent interface {
	Advance(ctx context.Context, conversationID, userID, text string) (string, error)
	Conversation(ctx context.Context, conversationID string) (*llm.ConversationState, error)
	Memory(ctx context.Context, userID string) (*memory.Snapshot, error)
}

// Server is the loom API server.
type Server struct {
	config Config
	agent  Agent
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server. The MCP endpoint is mounted at /mcp
// unless disabled.
func NewServer(config Config, agent Agent, log *slog.Logger) (*Server, error) {
	log = logger.OrNop(log)

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s := &Server{
		config: config,
		agent:  agent,
		logger: log,
		app:    app,
	}

	// A panicking handler answers 500 instead of stopping the server.
	app.Use(fiberrecover.New())

	app.Get("/ping", s.handlePing)
	app.Post("/v1/conversations/:id/turns", s.handleAdvance)
	app.Get("/v1/conversations/:id", s.handleGetConversation)
	app.Get("/v1/users/:id/memory", s.handleGetMemory)

	if !config.DisableMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Agent:  agent,
			Logger: log,
		})
		if err != nil {
			return nil, err
		}
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// ShutdownWithContext shuts down the API server, giving up when ctx ends.
func (s *Server) ShutdownWithContext(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App returns the underlying fiber app, for in-process requests.
func (s *Server) App() *fiber.App {
	return s.app
}
