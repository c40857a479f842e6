// Package memorycmder provides the memory command for inspecting a user's
// long-term memory.
package memorycmder

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/loom/cmd/loom/bootstrap"
	"github.com/papercomputeco/loom/pkg/cliui"
	"github.com/papercomputeco/loom/pkg/config"
	"github.com/papercomputeco/loom/pkg/logger"
)

const memoryLongDesc string = `Inspect what loom remembers about a user.

Examples:
  loom memory show
  loom memory show --user alice --json`

const memoryShortDesc string = "Inspect long-term memory"

// memoryFlags only need to reach the store.
var memoryFlags = []string{
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagUserID,
}

func NewMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: memoryShortDesc,
		Long:  memoryLongDesc,
	}

	cmd.AddCommand(newShowCmd())

	return cmd
}

func newShowCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a user's profile, projects and instructions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := bootstrap.OptionsFromCommand(cmd, memoryFlags, "cli")
			if err != nil {
				return err
			}
			opts.Config.VectorStore.Provider = ""

			debug, _ := cmd.Flags().GetBool("debug")
			opts.Logger = logger.New(logger.WithDebug(debug), logger.WithWriter(cmd.ErrOrStderr()))

			rt, err := bootstrap.Build(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			snap, err := rt.Engine.Memory(cmd.Context(), opts.Config.Agent.UserID)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(snap); err != nil {
					return fmt.Errorf("encoding memory: %w", err)
				}
				return nil
			}

			cliui.Memory(cmd.OutOrStdout(), snap)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print memory as JSON")
	config.AddFlags(cmd, config.Flags, memoryFlags)

	return cmd
}
