package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/loom/pkg/fault"
	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/pkg/logger"
	"github.com/papercomputeco/loom/pkg/storage"
	"github.com/papercomputeco/loom/pkg/utils"
)

// Acknowledgments returned as the action-result text of each kind.
const (
	AckProfile      = "user profile updated"
	AckInstructions = "instruction saved"
	AckProjects     = "project saved"
)

const fallbackTitleRunes = 50

// Config holds the collaborators shared by every extractor.
type Config struct {
	Model  llm.Model
	Store  storage.Driver
	Logger *slog.Logger

	// Now is the clock stamped into prompts. Defaults to time.Now.
	Now func() time.Time
}

// Result describes one completed extraction.
type Result struct {
	Kind   Kind
	Key    string
	Record json.RawMessage

	// Fallback is true when the model reply could not be used and the
	// deterministic fallback record was stored instead.
	Fallback bool

	// Ack is the acknowledgment text for the action-result message.
	Ack string
}

// Extractor turns a triggering user message into a long-term record of one kind.
type Extractor struct {
	kind   Kind
	model  llm.Model
	store  storage.Driver
	logger *slog.Logger
	now    func() time.Time

	// users serializes profile read-merge-write cycles per user.
	users *utils.KeyedMutex
}

// NewExtractor creates the extractor for kind.
func NewExtractor(kind Kind, cfg Config) (*Extractor, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown memory kind: %q", kind)
	}
	if cfg.Model == nil {
		return nil, errors.New("memory extractor requires a model")
	}
	if cfg.Store == nil {
		return nil, ErrNotConfigured
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Extractor{
		kind:   kind,
		model:  cfg.Model,
		store:  cfg.Store,
		logger: logger.OrNop(cfg.Logger).With("memory_kind", string(kind)),
		now:    now,
		users:  utils.NewKeyedMutex(),
	}, nil
}

// NewExtractors creates one extractor per kind.
func NewExtractors(cfg Config) (map[Kind]*Extractor, error) {
	out := make(map[Kind]*Extractor, len(Kinds))
	for _, k := range Kinds {
		e, err := NewExtractor(k, cfg)
		if err != nil {
			return nil, err
		}
		out[k] = e
	}
	return out, nil
}

// Kind returns the memory kind the extractor writes.
func (e *Extractor) Kind() Kind {
	return e.kind
}

// Extract asks the model for a structured record derived from trigger, which
// must be the user message that prompted the extraction, and stores it.
// Profile updates of one user run one at a time so concurrent conversations
// never drop each other's facts.
//
// Unusable model output never fails the call: a deterministic fallback record
// is stored instead. Model and store failures are returned.
func (e *Extractor) Extract(ctx context.Context, userID string, trigger llm.Message) (*Result, error) {
	const op = "memory.extract"

	if trigger.Role != llm.RoleUser {
		return nil, fault.Newf(fault.KindContract, op, "trigger must be a user message, got %q", trigger.Role)
	}
	if userID == "" {
		return nil, fault.Newf(fault.KindContract, op, "user id is required")
	}

	ns := e.kind.Namespace(userID)

	var prior *Profile
	if e.kind == KindProfile {
		unlock, err := e.users.Lock(ctx, userID)
		if err != nil {
			return nil, fault.Wrap(fault.KindCanceled, op, err)
		}
		defer unlock()

		p, err := e.loadProfile(ctx, ns)
		if err != nil {
			return nil, fault.Wrap(fault.KindStoreUnavailable, op, err)
		}
		prior = p
	}

	reply, err := e.model.Invoke(ctx, e.prompt(trigger.Content, prior), nil)
	if err != nil {
		return nil, fault.Wrap(fault.KindTransient, op, err)
	}

	key, record, fallback, err := e.build(reply.Content, trigger.Content, prior)
	if err != nil {
		return nil, fault.Wrap(fault.KindContract, op, err)
	}
	if fallback {
		e.logger.Warn("model reply unusable, storing fallback record", "user_id", userID)
	}

	if record != nil {
		if err := e.store.Put(ctx, ns, key, record); err != nil {
			return nil, fault.Wrap(fault.KindStoreUnavailable, op, err)
		}
	} else {
		record = json.RawMessage(`{}`)
	}

	e.logger.Debug("memory stored", "user_id", userID, "key", key, "fallback", fallback)

	return &Result{
		Kind:     e.kind,
		Key:      key,
		Record:   record,
		Fallback: fallback,
		Ack:      e.ack(),
	}, nil
}

func (e *Extractor) loadProfile(ctx context.Context, ns storage.Namespace) (*Profile, error) {
	item, err := e.store.Get(ctx, ns, ProfileKey)
	if storage.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := json.Unmarshal(item.Value, &p); err != nil {
		// A corrupt stored profile is treated as empty rather than blocking
		// every future update.
		e.logger.Warn("stored profile is not valid JSON, ignoring", "error", err)
		return nil, nil
	}
	return &p, nil
}

// build returns the key and record to store. A nil record means nothing is
// written.
func (e *Extractor) build(reply, userText string, prior *Profile) (string, json.RawMessage, bool, error) {
	switch e.kind {
	case KindProfile:
		var update Profile
		if err := parseObject(reply, &update); err != nil {
			if prior == nil {
				return ProfileKey, nil, true, nil
			}
			b, err := json.Marshal(prior)
			return ProfileKey, b, true, err
		}
		var base Profile
		if prior != nil {
			base = *prior
		}
		b, err := json.Marshal(base.Merge(update))
		return ProfileKey, b, false, err

	case KindInstructions:
		var ins Instruction
		fallback := false
		if err := parseObject(reply, &ins); err != nil || strings.TrimSpace(ins.Content) == "" {
			ins, fallback = Instruction{Content: userText}, true
		} else {
			ins.Content = strings.TrimSpace(ins.Content)
		}
		b, err := json.Marshal(ins)
		return newKey(), b, fallback, err

	case KindProjects:
		var p Project
		fallback := false
		if err := parseObject(reply, &p); err != nil || strings.TrimSpace(p.Title) == "" {
			p, fallback = fallbackProject(userText), true
		} else {
			p.Normalize()
		}
		b, err := json.Marshal(p)
		return newKey(), b, fallback, err
	}

	return "", nil, false, fmt.Errorf("unknown memory kind: %q", e.kind)
}

func (e *Extractor) ack() string {
	switch e.kind {
	case KindProfile:
		return AckProfile
	case KindInstructions:
		return AckInstructions
	default:
		return AckProjects
	}
}

func newKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// fallbackProject derives a project from raw text: the first sentence,
// clipped, becomes the title.
func fallbackProject(text string) Project {
	first, _, _ := strings.Cut(text, ".")
	title := strings.TrimSpace(utils.Clip(first, fallbackTitleRunes))
	if title == "" {
		title = strings.TrimSpace(utils.Clip(text, fallbackTitleRunes))
	}
	return Project{
		Title:       title,
		Description: text,
		DueDate:     nil,
		Status:      StatusPlanned,
	}
}

// parseObject decodes the outermost JSON object of a model reply, tolerating
// code fences and surrounding prose.
func parseObject(reply string, v any) error {
	s := strings.TrimSpace(reply)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return errors.New("no JSON object in reply")
	}

	return json.Unmarshal([]byte(s[start:end+1]), v)
}
