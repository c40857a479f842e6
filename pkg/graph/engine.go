// Package graph runs a conversation turn: the decision node asks the model
// what to do, the Router picks the next node, and capability or memory
// extractor nodes run until the model answers in plain text.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/papercomputeco/loom/pkg/capability"
	"github.com/papercomputeco/loom/pkg/compaction"
	"github.com/papercomputeco/loom/pkg/eventstream"
	"github.com/papercomputeco/loom/pkg/fault"
	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/pkg/logger"
	"github.com/papercomputeco/loom/pkg/memory"
	"github.com/papercomputeco/loom/pkg/storage"
	"github.com/papercomputeco/loom/pkg/utils"
	"github.com/papercomputeco/loom/pkg/worker"
)

// DefaultMaxSteps bounds the decision-node calls of one turn.
const DefaultMaxSteps = 8

// Indexer receives the messages of completed turns for search indexing.
// *worker.Pool satisfies it.
type Indexer interface {
	Enqueue(job worker.Job) bool
}

// Config holds the collaborators of an Engine.
type Config struct {
	// Model answers the decision node. Wrap it with provider.WithRetry to
	// retry transient failures.
	Model llm.Model

	// Store is both the long-term memory store and the checkpoint log.
	Store storage.Store

	// Registry holds the capabilities bound to the model. May be nil.
	Registry *capability.Registry

	// Extractors defaults to one extractor per memory kind using Model and Store.
	Extractors map[memory.Kind]*memory.Extractor

	// Compactor defaults to a compactor using Model with CompactionThreshold.
	Compactor *compaction.Compactor

	// CompactionThreshold is used only when Compactor is nil.
	CompactionThreshold int

	// MaxSteps defaults to DefaultMaxSteps.
	MaxSteps int

	// Publisher receives a TurnCompletedEvent after every completed turn.
	Publisher eventstream.Publisher

	// Indexer receives the messages of every completed turn.
	Indexer Indexer

	// Source labels published events.
	Source eventstream.EventSource

	Logger *slog.Logger

	// Now is the clock stamped into the system prompt. Defaults to time.Now.
	Now func() time.Time
}

// Engine executes turns. It is safe for concurrent use: turns on the same
// conversation run one at a time, turns on different conversations run in
// parallel.
type Engine struct {
	model      llm.Model
	store      storage.Store
	registry   *capability.Registry
	router     *Router
	extractors map[memory.Kind]*memory.Extractor
	compactor  *compaction.Compactor
	maxSteps   int
	publisher  eventstream.Publisher
	indexer    Indexer
	source     eventstream.EventSource
	specs      []llm.ActionSpec
	locks      *utils.KeyedMutex
	logger     *slog.Logger
	now        func() time.Time
}

// New creates an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Model == nil {
		return nil, errors.New("engine requires a model")
	}
	if cfg.Store == nil {
		return nil, errors.New("engine requires a store")
	}

	for _, name := range cfg.Registry.Names() {
		if reserved(name) {
			return nil, fmt.Errorf("capability name %q collides with a memory action", name)
		}
	}

	log := logger.OrNop(cfg.Logger)

	extractors := cfg.Extractors
	if extractors == nil {
		var err error
		extractors, err = memory.NewExtractors(memory.Config{
			Model:  cfg.Model,
			Store:  cfg.Store,
			Logger: log,
			Now:    cfg.Now,
		})
		if err != nil {
			return nil, fmt.Errorf("creating extractors: %w", err)
		}
	}
	for _, k := range memory.Kinds {
		if extractors[k] == nil {
			return nil, fmt.Errorf("missing %s extractor", k)
		}
	}

	compactor := cfg.Compactor
	if compactor == nil {
		var err error
		compactor, err = compaction.New(compaction.Config{
			Model:     cfg.Model,
			Threshold: cfg.CompactionThreshold,
			Logger:    log,
			Now:       cfg.Now,
		})
		if err != nil {
			return nil, fmt.Errorf("creating compactor: %w", err)
		}
	}

	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		model:      cfg.Model,
		store:      cfg.Store,
		registry:   cfg.Registry,
		router:     NewRouter(cfg.Registry),
		extractors: extractors,
		compactor:  compactor,
		maxSteps:   maxSteps,
		publisher:  cfg.Publisher,
		indexer:    cfg.Indexer,
		source:     cfg.Source,
		specs:      slices.Concat(memory.Specs(), cfg.Registry.Specs()),
		locks:      utils.NewKeyedMutex(),
		logger:     log,
		now:        now,
	}, nil
}

// Router returns the engine's router.
func (e *Engine) Router() *Router {
	return e.router
}

// turn tracks one Advance call.
type turn struct {
	state     *llm.ConversationState
	userID    string
	trigger   llm.Message
	added     []llm.Message
	usage     llm.Usage
	steps     int
	compacted bool
	started   time.Time
}

// Advance appends text as a user message to the conversation and runs the
// graph until the model replies without an action. It returns that reply.
//
// Every appended message is checkpointed before the next step runs, so a
// failed or canceled turn leaves the conversation as of its last append.
// Failures are *fault.Error values.
func (e *Engine) Advance(ctx context.Context, conversationID, userID, text string) (string, error) {
	const op = "graph.advance"

	if conversationID == "" || userID == "" {
		return "", fault.Newf(fault.KindContract, op, "conversation id and user id are required")
	}
	if strings.TrimSpace(text) == "" {
		return "", fault.Newf(fault.KindContract, op, "user text is empty")
	}

	unlock, err := e.locks.Lock(ctx, conversationID)
	if err != nil {
		return "", fault.Wrap(fault.KindCanceled, op, err)
	}
	defer unlock()

	log := e.logger.With("conversation_id", conversationID, "user_id", userID)

	state, err := e.store.Load(ctx, conversationID)
	if err != nil {
		return "", fault.Wrap(fault.KindStoreUnavailable, op, err)
	}

	t := &turn{
		state:   state,
		userID:  userID,
		trigger: llm.NewUserMessage(text),
		started: time.Now(),
	}

	if req, ok := state.PendingAction(); ok {
		log.Warn("resolving action left pending by an earlier turn", "action", req.Name, "action_id", req.ID)
		msg := llm.NewActionResult(req.ID, fmt.Sprintf("error: action %q was not completed", req.Name), true)
		if err := e.append(ctx, t, msg); err != nil {
			return "", err
		}
	}

	if err := e.append(ctx, t, t.trigger); err != nil {
		return "", err
	}

	if e.compactor.NeedsCompaction(state) {
		res, err := e.compactor.Compact(ctx, state)
		if err != nil {
			return "", fault.Wrap(fault.KindTransient, op, err)
		}
		compaction.Apply(state, res)
		if err := e.save(ctx, state); err != nil {
			return "", err
		}
		t.compacted = true
	}

	for t.steps < e.maxSteps {
		t.steps++

		reply, err := e.decide(ctx, t)
		if err != nil {
			return "", err
		}
		if err := e.append(ctx, t, reply); err != nil {
			return "", err
		}

		node := e.router.Route(reply)
		if node == Terminal {
			if req, ok := reply.FirstAction(); ok {
				log.Warn("model requested an unknown action, ending turn", "action", req.Name)
			}
			e.finish(ctx, t, reply.Content)
			return reply.Content, nil
		}

		req, _ := reply.FirstAction()
		result, err := e.dispatch(ctx, t, node, req)
		if err != nil {
			return "", err
		}
		if err := e.append(ctx, t, result); err != nil {
			return "", err
		}
	}

	return "", fault.Newf(fault.KindStepLimit, op, "no final reply after %d steps", e.maxSteps)
}

// decide runs the decision node and returns the normalized assistant reply.
func (e *Engine) decide(ctx context.Context, t *turn) (llm.Message, error) {
	const op = "graph.decide"

	snap, err := memory.Recall(ctx, e.store, t.userID)
	if err != nil {
		return llm.Message{}, fault.Wrap(fault.KindStoreUnavailable, op, err)
	}

	msgs := make([]llm.Message, 0, len(t.state.Messages)+1)
	msgs = append(msgs, llm.NewSystemMessage(e.systemPrompt(snap, t.state.Summary)))
	msgs = append(msgs, t.state.ModelHistory()...)

	reply, err := e.model.Invoke(ctx, msgs, e.specs)
	if err != nil {
		return llm.Message{}, fault.Wrap(fault.KindTransient, op, err)
	}
	t.usage.Add(reply.Usage)

	return e.normalize(reply, t.state), nil
}

// normalize stamps ids and drops every action request after the first. Action
// ids must be unique within the conversation, so one already used in state is
// replaced.
func (e *Engine) normalize(reply llm.Message, state *llm.ConversationState) llm.Message {
	reply.Role = llm.RoleAssistant
	if reply.ID == "" {
		reply.ID = llm.NewMessageID()
	}
	if reply.CreatedAt.IsZero() {
		reply.CreatedAt = time.Now().UTC()
	}

	if n := len(reply.ActionRequests); n > 1 {
		e.logger.Warn("model requested several actions, keeping the first",
			"requested", n,
			"kept", reply.ActionRequests[0].Name,
		)
	}
	if len(reply.ActionRequests) > 0 {
		req := reply.ActionRequests[0]
		if req.ID == "" {
			req.ID = llm.NewMessageID()
		} else if actionIDTaken(state, req.ID) {
			e.logger.Debug("replacing reused action id", "conversation_id", state.ConversationID, "id", req.ID)
			req.ID = llm.NewMessageID()
		}
		reply.ActionRequests = []llm.ActionRequest{req}
	}

	return reply
}

func actionIDTaken(state *llm.ConversationState, id string) bool {
	for _, m := range state.Messages {
		if m.ActionResultOf == id {
			return true
		}
		for _, r := range m.ActionRequests {
			if r.ID == id {
				return true
			}
		}
	}
	return false
}

// dispatch runs node for req and returns the action-result message.
func (e *Engine) dispatch(ctx context.Context, t *turn, node NodeID, req llm.ActionRequest) (llm.Message, error) {
	const op = "graph.dispatch"

	if name, ok := node.Capability(); ok {
		c, _ := e.registry.Lookup(name)
		ictx := capability.WithInvocation(ctx, capability.Invocation{
			ConversationID: t.state.ConversationID,
			UserID:         t.userID,
		})

		out, err := invoke(ictx, c, req.Arguments)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return llm.Message{}, fault.Wrap(fault.KindCanceled, op, ctxErr)
			}
			e.logger.Warn("capability failed",
				"conversation_id", t.state.ConversationID,
				"capability", name,
				"error", err,
			)
			return llm.NewActionResult(req.ID, "error: "+err.Error(), true), nil
		}

		e.logger.Debug("capability invoked", "capability", name, "result_chars", len(out))
		return llm.NewActionResult(req.ID, out, false), nil
	}

	if kind, ok := node.Extractor(); ok {
		ex := e.extractors[kind]
		if ex == nil {
			return llm.Message{}, fault.Newf(fault.KindUnknownAction, op, "no extractor for %q", kind)
		}

		res, err := ex.Extract(ctx, t.userID, t.trigger)
		if err != nil {
			return llm.Message{}, fault.Wrap(fault.KindStoreUnavailable, op, err)
		}
		return llm.NewActionResult(req.ID, res.Ack, false), nil
	}

	return llm.Message{}, fault.Newf(fault.KindUnknownAction, op, "unroutable node %q", node)
}

// invoke calls c and reports a panic as an error.
func invoke(ctx context.Context, c capability.Capability, args map[string]any) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("capability panicked: %v", r)
		}
	}()
	return c.Invoke(ctx, args)
}

// append adds msg to the turn's state and checkpoints it. Action results
// must resolve the pending request.
func (e *Engine) append(ctx context.Context, t *turn, msg llm.Message) error {
	if msg.Role == llm.RoleActionResult {
		pending, ok := t.state.PendingAction()
		if !ok || pending.ID != msg.ActionResultOf {
			return fault.Newf(fault.KindContract, "graph.append",
				"action result %q does not match a pending request", msg.ActionResultOf)
		}
	}

	t.state.Append(msg)
	t.added = append(t.added, msg)

	return e.save(ctx, t.state)
}

func (e *Engine) save(ctx context.Context, state *llm.ConversationState) error {
	if err := e.store.Save(ctx, state); err != nil {
		return fault.Wrap(fault.KindStoreUnavailable, "graph.checkpoint", err)
	}
	return nil
}

// finish hands the completed turn to the publisher and the indexer. Both are
// best-effort.
func (e *Engine) finish(ctx context.Context, t *turn, reply string) {
	completed := llm.Turn{
		ConversationID: t.state.ConversationID,
		UserID:         t.userID,
		Messages:       t.added,
		Reply:          reply,
		Steps:          t.steps,
		Usage:          t.usage,
	}

	e.logger.Info("turn completed",
		"conversation_id", completed.ConversationID,
		"steps", completed.Steps,
		"messages", len(completed.Messages),
		"compacted", t.compacted,
		"duration", time.Since(t.started),
	)

	if e.publisher != nil {
		event := eventstream.NewTurnCompletedEvent(completed, e.source, t.started, t.compacted)
		if err := e.publisher.PublishTurn(ctx, event); err != nil {
			e.logger.Warn("failed to publish turn event", "conversation_id", completed.ConversationID, "error", err)
		}
	}

	if e.indexer != nil {
		e.indexer.Enqueue(worker.Job{
			ConversationID: completed.ConversationID,
			UserID:         completed.UserID,
			Messages:       completed.Messages,
		})
	}
}

// Memory returns everything remembered about userID.
func (e *Engine) Memory(ctx context.Context, userID string) (*memory.Snapshot, error) {
	snap, err := memory.Recall(ctx, e.store, userID)
	if err != nil {
		return nil, fault.Wrap(fault.KindStoreUnavailable, "graph.memory", err)
	}
	return snap, nil
}

// Conversation returns the checkpointed state of conversationID. A
// conversation that was never advanced has no messages.
func (e *Engine) Conversation(ctx context.Context, conversationID string) (*llm.ConversationState, error) {
	state, err := e.store.Load(ctx, conversationID)
	if err != nil {
		return nil, fault.Wrap(fault.KindStoreUnavailable, "graph.conversation", err)
	}
	return state, nil
}
