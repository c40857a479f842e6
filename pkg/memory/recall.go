package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/loom/pkg/storage"
)

// StoredInstruction is an instruction with its store key.
type StoredInstruction struct {
	Key string `json:"key"`
	Instruction
}

// StoredProject is a project with its store key.
type StoredProject struct {
	Key string `json:"key"`
	Project
}

// ErrNotConfigured is returned when memory is used without a long-term store.
var ErrNotConfigured = errors.New("memory not configured")

// Snapshot is everything remembered about one user.
type Snapshot struct {
	UserID       string              `json:"user_id"`
	Profile      *Profile            `json:"profile"`
	Instructions []StoredInstruction `json:"instructions"`
	Projects     []StoredProject     `json:"projects"`
}

// Recall loads the three memory namespaces of userID concurrently. Records
// that fail to decode are skipped.
func Recall(ctx context.Context, store storage.Driver, userID string) (*Snapshot, error) {
	if store == nil {
		return nil, ErrNotConfigured
	}

	snap := &Snapshot{
		UserID:       userID,
		Instructions: []StoredInstruction{},
		Projects:     []StoredProject{},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		item, err := store.Get(gctx, KindProfile.Namespace(userID), ProfileKey)
		if storage.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("loading profile: %w", err)
		}
		var p Profile
		if json.Unmarshal(item.Value, &p) == nil {
			snap.Profile = &p
		}
		return nil
	})

	g.Go(func() error {
		items, err := store.Search(gctx, KindInstructions.Namespace(userID))
		if err != nil {
			return fmt.Errorf("loading instructions: %w", err)
		}
		for _, item := range items {
			var ins Instruction
			if json.Unmarshal(item.Value, &ins) == nil {
				snap.Instructions = append(snap.Instructions, StoredInstruction{Key: item.Key, Instruction: ins})
			}
		}
		return nil
	})

	g.Go(func() error {
		items, err := store.Search(gctx, KindProjects.Namespace(userID))
		if err != nil {
			return fmt.Errorf("loading projects: %w", err)
		}
		for _, item := range items {
			var p Project
			if json.Unmarshal(item.Value, &p) == nil {
				snap.Projects = append(snap.Projects, StoredProject{Key: item.Key, Project: p})
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return snap, nil
}

// Render formats the snapshot as the memory block of the decision prompt.
func (s *Snapshot) Render() string {
	var sb strings.Builder

	sb.WriteString("<user_profile>\n")
	if s.Profile == nil || s.Profile.IsEmpty() {
		sb.WriteString("(empty)\n")
	} else {
		writeField(&sb, "name", s.Profile.Name)
		writeField(&sb, "location", s.Profile.Location)
		writeField(&sb, "job", s.Profile.Job)
		if len(s.Profile.Passions) > 0 {
			fmt.Fprintf(&sb, "passions: %s\n", strings.Join(s.Profile.Passions, ", "))
		}
	}
	sb.WriteString("</user_profile>\n\n")

	sb.WriteString("<projects>\n")
	if len(s.Projects) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, p := range s.Projects {
		sb.WriteString("- ")
		sb.WriteString(p.Title)
		sb.WriteString(" [")
		sb.WriteString(p.Status)
		if p.DueDate != nil {
			sb.WriteString(", due ")
			sb.WriteString(*p.DueDate)
		}
		sb.WriteString("]")
		if p.Description != "" && p.Description != p.Title {
			sb.WriteString(": ")
			sb.WriteString(p.Description)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("</projects>\n\n")

	sb.WriteString("<instructions>\n")
	if len(s.Instructions) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, ins := range s.Instructions {
		sb.WriteString("- ")
		sb.WriteString(ins.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("</instructions>")

	return sb.String()
}

func writeField(sb *strings.Builder, name string, v *string) {
	if v == nil || *v == "" {
		return
	}
	fmt.Fprintf(sb, "%s: %s\n", name, *v)
}
