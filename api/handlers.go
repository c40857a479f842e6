package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/loom/pkg/fault"
	"github.com/papercomputeco/loom/pkg/llm"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// AdvanceRequest is the body of POST /v1/conversations/:id/turns.
type AdvanceRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// AdvanceResponse carries the final assistant text of a turn.
type AdvanceResponse struct {
	ConversationID string `json:"conversation_id"`
	Reply          string `json:"reply"`
}

// ConversationResponse is the checkpointed state of a conversation.
type ConversationResponse struct {
	ConversationID string        `json:"conversation_id"`
	Summary        string        `json:"summary,omitempty"`
	Messages       []llm.Message `json:"messages"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleAdvance(c *fiber.Ctx) error {
	id := c.Params("id")

	var req AdvanceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "user_id and text are required"})
	}

	reply, err := s.agent.Advance(c.UserContext(), id, req.UserID, req.Text)
	if err != nil {
		s.logger.Warn("turn failed",
			"conversation_id", id,
			"user_id", req.UserID,
			"kind", fault.KindOf(err).String(),
			"error", err,
		)
		return s.faultResponse(c, err)
	}

	return c.JSON(AdvanceResponse{ConversationID: id, Reply: reply})
}

func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	id := c.Params("id")

	state, err := s.agent.Conversation(c.UserContext(), id)
	if err != nil {
		return s.faultResponse(c, err)
	}
	if len(state.Messages) == 0 && state.Summary == "" {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "conversation not found"})
	}

	return c.JSON(ConversationResponse{
		ConversationID: state.ConversationID,
		Summary:        state.Summary,
		Messages:       state.Messages,
	})
}

func (s *Server) handleGetMemory(c *fiber.Ctx) error {
	snap, err := s.agent.Memory(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.faultResponse(c, err)
	}
	return c.JSON(snap)
}

func (s *Server) faultResponse(c *fiber.Ctx, err error) error {
	kind := fault.KindOf(err)
	return c.Status(statusFor(kind)).JSON(ErrorResponse{Error: err.Error(), Kind: kind.String()})
}

// statusFor maps a failure kind to the HTTP status reported to clients.
func statusFor(kind fault.Kind) int {
	switch kind {
	case fault.KindContract:
		return fiber.StatusBadRequest
	case fault.KindTransient, fault.KindStoreUnavailable:
		return fiber.StatusServiceUnavailable
	case fault.KindMalformedOutput:
		return fiber.StatusBadGateway
	case fault.KindStepLimit:
		return fiber.StatusUnprocessableEntity
	case fault.KindCanceled:
		return fiber.StatusRequestTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
}
