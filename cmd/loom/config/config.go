// Package configcmder provides the config command for managing persistent
// loom configuration stored in the .loom/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/loom/pkg/cliui"
	"github.com/papercomputeco/loom/pkg/config"
	"github.com/papercomputeco/loom/pkg/credentials"
)

const configLongDesc string = `Manage persistent loom configuration.

Configuration is stored as config.toml in the .loom/ directory and provides
default values for command flags. Precedence, highest first: CLI flags,
LOOM_* environment variables, config.toml, built-in defaults.

Keys use dotted notation matching the TOML section structure:
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  model.provider, model.target, model.name, model.api_key,
  model.temperature, model.max_attempts,
  agent.compaction_threshold, agent.max_steps, agent.user_id,
  api.listen,
  vector_store.provider, vector_store.target,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  eventstream.provider, eventstream.brokers, eventstream.topic

Examples:
  loom config set model.provider anthropic
  loom config set agent.compaction_threshold 20
  loom config get model.provider
  loom config unset model.temperature
  loom config list`

const configShortDesc string = "Manage persistent loom configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a configuration value",
			Long: `Set a configuration value in config.toml.

Numeric keys are parsed, and storage.driver, model.provider and
eventstream.provider only accept their supported values.`,
			Args:              cobra.ExactArgs(2),
			ValidArgsFunction: completeKeys,
			RunE: withConfiger(func(w io.Writer, c *config.Configer, args []string) error {
				key, value := args[0], args[1]
				if err := c.SetConfigValue(key, value); err != nil {
					return err
				}
				fmt.Fprintf(w, "  %s Set %s = %s\n\n",
					cliui.SuccessMark, cliui.KeyStyle.Render(key), cliui.ValueStyle.Render(display(key, value)))
				return nil
			}),
		},
		&cobra.Command{
			Use:               "get <key>",
			Short:             "Get a configuration value",
			Long:              "Print the effective value of a key, falling back to its default.",
			Args:              cobra.ExactArgs(1),
			ValidArgsFunction: completeKeys,
			RunE: withConfiger(func(w io.Writer, c *config.Configer, args []string) error {
				value, err := c.GetConfigValue(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "  %s  %s\n\n", cliui.KeyStyle.Render(args[0]), renderValue(args[0], value))
				return nil
			}),
		},
		&cobra.Command{
			Use:               "unset <key>",
			Short:             "Reset a configuration value to its default",
			Args:              cobra.ExactArgs(1),
			ValidArgsFunction: completeKeys,
			RunE: withConfiger(func(w io.Writer, c *config.Configer, args []string) error {
				if err := c.UnsetConfigValue(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(w, "  %s Unset %s\n\n", cliui.SuccessMark, cliui.KeyStyle.Render(args[0]))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "list",
			Short: "List all configuration values",
			Long:  "List every key with its effective value. Values equal to the built-in default are marked.",
			Args:  cobra.NoArgs,
			RunE:  withConfiger(runList),
		},
	)

	return cmd
}

// withConfiger resolves config.toml, validates a key argument and prints the
// file in use before running fn.
func withConfiger(fn func(io.Writer, *config.Configer, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 && !config.IsValidConfigKey(args[0]) {
			return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
				args[0], strings.Join(config.ValidConfigKeys(), ", "))
		}

		configDir, _ := cmd.Flags().GetString("config-dir")
		cfger, err := config.NewConfiger(configDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "\n  %s %s\n\n", cliui.KeyStyle.Render("Config file:"), cliui.DimStyle.Render(cfger.GetTarget()))
		return fn(w, cfger, args)
	}
}

func runList(w io.Writer, c *config.Configer, _ []string) error {
	keys := config.ValidConfigKeys()

	width := 0
	for _, k := range keys {
		width = max(width, len(k))
	}

	for _, key := range keys {
		value, err := c.GetConfigValue(key)
		if err != nil {
			return err
		}
		def, err := config.DefaultConfigValue(key)
		if err != nil {
			return err
		}

		line := fmt.Sprintf("  %s  %s", cliui.KeyStyle.Render(fmt.Sprintf("%-*s", width, key)), renderValue(key, value))
		if value != "" && value == def {
			line += " " + cliui.DimStyle.Render("(default)")
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)

	return nil
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func renderValue(key, value string) string {
	if value == "" {
		return cliui.DimStyle.Render("<not set>")
	}
	return cliui.ValueStyle.Render(display(key, value))
}

// display hides secrets.
func display(key, value string) string {
	if key == "model.api_key" {
		return credentials.Mask(value)
	}
	return value
}
