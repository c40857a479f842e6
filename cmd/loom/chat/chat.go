// Package chatcmder provides the chat command, an interactive conversation
// with the loom agent.
package chatcmder

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/loom/cmd/loom/bootstrap"
	"github.com/papercomputeco/loom/pkg/cliui"
	"github.com/papercomputeco/loom/pkg/config"
	"github.com/papercomputeco/loom/pkg/dotdir"
	"github.com/papercomputeco/loom/pkg/logger"
)

const chatLongDesc string = `Start an interactive conversation with loom.

Every turn is checkpointed. Running "loom chat" again resumes the last
conversation; use --new or the /new command to start a fresh one. A debug
log of every session is appended to loom.log in the .loom/ directory.

Inside the chat:
  /memory    Show what loom remembers about you
  /summary   Show the summary of older messages
  /new       Start a new conversation
  /exit      Quit (or Ctrl+D)

Examples:
  loom chat
  loom chat --new --provider anthropic
  loom chat --user alice --sqlite ./loom.sqlite`

const chatShortDesc string = "Chat with loom"

const logFileName = "loom.log"

type chatCommander struct {
	fresh bool
	debug bool
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVar(&cmder.fresh, "new", false, "Start a new conversation instead of resuming")
	config.AddFlags(cmd, config.Flags, bootstrap.EngineFlags)

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command) error {
	opts, err := bootstrap.OptionsFromCommand(cmd, bootstrap.EngineFlags, "cli")
	if err != nil {
		return err
	}

	tty := term.IsTerminal(int(os.Stdout.Fd()))
	terminal := logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(tty),
		logger.WithWriter(cmd.ErrOrStderr()),
	)

	logFile, err := openLogFile(opts.ConfigDir)
	if err != nil {
		return err
	}
	defer logFile.Close()

	opts.Logger = logger.Multi(terminal, logger.New(
		logger.WithJSON(true),
		logger.WithDebug(true),
		logger.WithSource(c.debug),
		logger.WithWriter(logFile),
	))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Build(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			opts.Logger.Warn("closing runtime", "error", err)
		}
	}()

	userID := opts.Config.Agent.UserID
	ddm := dotdir.NewManager()

	var conversationID string
	if !c.fresh {
		session, err := ddm.LoadSession(opts.ConfigDir)
		if err != nil {
			return fmt.Errorf("loading session: %w", err)
		}
		if session != nil && session.UserID == userID {
			conversationID = session.ConversationID
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	if conversationID != "" {
		fmt.Fprintf(out, "  %s Resuming %s\n", cliui.SuccessMark, cliui.DimStyle.Render(conversationID))
	}
	cliui.KeyValue(out, "Model", rt.ModelName)
	cliui.KeyValue(out, "User", userID)
	fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /help for commands, /exit or Ctrl+D to quit."))

	repl := &REPL{
		Agent:          rt.Engine,
		In:             cmd.InOrStdin(),
		Out:            out,
		UserID:         userID,
		ConversationID: conversationID,
		Pretty:         tty,
		OnNew: func(id string) error {
			return ddm.SaveSession(&dotdir.Session{
				ConversationID: id,
				UserID:         userID,
				StartedAt:      time.Now().UTC(),
			}, opts.ConfigDir)
		},
	}

	return repl.Run(ctx)
}

// openLogFile opens the chat's JSON debug log for appending. Terminal output
// stays at the --debug level while the file keeps every record.
func openLogFile(configDir string) (*os.File, error) {
	path, err := dotdir.NewManager().Path(configDir, logFileName)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}
