package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/papercomputeco/loom/pkg/cliui"
	"github.com/papercomputeco/loom/pkg/fault"
	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/pkg/memory"
)

// Agent is the slice of graph.Engine the REPL drives.
type Agent interface {
	Advance(ctx context.Context, conversationID, userID, text string) (string, error)
	Conversation(ctx context.Context, conversationID string) (*llm.ConversationState, error)
	Memory(ctx context.Context, userID string) (*memory.Snapshot, error)
}

const replHelp = `Commands:
  /memory    Show what loom remembers about you
  /summary   Show the summary of older messages
  /new       Start a new conversation
  /exit      Quit (or Ctrl+D)`

// REPL reads user lines and advances one conversation per line.
type REPL struct {
	Agent Agent
	In    io.Reader
	Out   io.Writer

	UserID         string
	ConversationID string

	// Pretty renders replies as markdown and shows a spinner during turns.
	Pretty bool

	// OnNew is called with the id of every conversation the REPL switches to.
	OnNew func(conversationID string) error
}

// Run loops until EOF, /exit or ctx is done. Failed turns are reported and
// the loop continues; the conversation checkpoint is left intact.
func (r *REPL) Run(ctx context.Context) error {
	if r.ConversationID == "" {
		if err := r.newConversation(); err != nil {
			return err
		}
	}

	scanner := bufio.NewScanner(r.In)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if ctx.Err() != nil {
			return nil
		}

		fmt.Fprint(r.Out, cliui.UserPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, err := r.command(ctx, input)
			if err != nil {
				return err
			}
			if quit {
				break
			}
			continue
		}

		r.turn(ctx, input)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(r.Out)
	return nil
}

func (r *REPL) turn(ctx context.Context, input string) {
	var reply string
	advance := func() error {
		var err error
		reply, err = r.Agent.Advance(ctx, r.ConversationID, r.UserID, input)
		return err
	}

	var err error
	if r.Pretty {
		err = cliui.Step(r.Out, "thinking", advance)
	} else {
		err = advance()
	}

	if err != nil {
		r.fail(err)
		return
	}

	cliui.Reply(r.Out, reply, r.Pretty)
	fmt.Fprintln(r.Out)
}

func (r *REPL) command(ctx context.Context, input string) (bool, error) {
	switch strings.Fields(input)[0] {
	case "/exit", "/quit":
		return true, nil

	case "/memory":
		snap, err := r.Agent.Memory(ctx, r.UserID)
		if err != nil {
			r.fail(err)
			return false, nil
		}
		cliui.Memory(r.Out, snap)

	case "/summary":
		state, err := r.Agent.Conversation(ctx, r.ConversationID)
		if err != nil {
			r.fail(err)
			return false, nil
		}
		if state.Summary == "" {
			fmt.Fprintf(r.Out, "\n  %s\n\n", cliui.DimStyle.Render("(no summary yet)"))
			return false, nil
		}
		fmt.Fprintf(r.Out, "\n  %s\n\n%s\n\n", cliui.HeaderStyle.Render("Summary"), state.Summary)

	case "/new":
		if err := r.newConversation(); err != nil {
			return false, err
		}

	case "/help":
		fmt.Fprintf(r.Out, "\n%s\n\n", replHelp)

	default:
		fmt.Fprintf(r.Out, "  %s unknown command %s\n\n%s\n\n", cliui.FailMark, input, replHelp)
	}

	return false, nil
}

func (r *REPL) newConversation() error {
	r.ConversationID = uuid.NewString()
	if r.OnNew != nil {
		if err := r.OnNew(r.ConversationID); err != nil {
			return err
		}
	}
	fmt.Fprintf(r.Out, "  %s New conversation %s\n\n",
		cliui.DimStyle.Render("●"),
		cliui.DimStyle.Render(r.ConversationID),
	)
	return nil
}

func (r *REPL) fail(err error) {
	kind := fault.KindOf(err).String()
	fmt.Fprintf(r.Out, "  %s %v %s\n\n", cliui.FailMark, err, cliui.DimStyle.Render("("+kind+")"))
}
