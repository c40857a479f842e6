// Package loomcmder is the root of the loom command tree.
package loomcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/loom/cmd/loom/auth"
	chatcmder "github.com/papercomputeco/loom/cmd/loom/chat"
	configcmder "github.com/papercomputeco/loom/cmd/loom/config"
	initcmder "github.com/papercomputeco/loom/cmd/loom/init"
	memorycmder "github.com/papercomputeco/loom/cmd/loom/memory"
	servecmder "github.com/papercomputeco/loom/cmd/loom/serve"
	versioncmder "github.com/papercomputeco/loom/cmd/loom/version"
)

const loomLongDesc string = `Loom is a conversational agent that remembers you.

Each turn is checkpointed, so conversations survive restarts. Loom keeps a
long-term memory of your profile, your projects and your instructions, and
summarizes long conversations as they grow.

Get started:
  loom init --preset openai   Create a local .loom/ directory
  loom auth set openai        Store an API key
  loom chat                   Start chatting
  loom serve                  Run the HTTP and MCP API`

const loomShortDesc string = "Loom - conversational agent with long-term memory"

func NewLoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "loom",
		Short:         loomShortDesc,
		Long:          loomLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .loom/ directory")

	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(memorycmder.NewMemoryCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
