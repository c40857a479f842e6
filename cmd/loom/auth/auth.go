// Package authcmder provides the auth command for storing provider API keys.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/loom/pkg/cliui"
	"github.com/papercomputeco/loom/pkg/credentials"
	"github.com/papercomputeco/loom/pkg/llm/provider"
)

const authLongDesc string = `Store API keys for model providers.

Keys are stored in credentials.toml in the .loom/ directory. A key set with
"loom config set model.api_key" takes precedence, and the provider's
environment variable is consulted last.

Supported providers: openai, anthropic

Examples:
  loom auth set openai              Prompt for an OpenAI API key
  echo $KEY | loom auth set openai  Pipe the key from stdin
  loom auth list                    List stored keys
  loom auth remove openai           Remove the stored OpenAI key`

const authShortDesc string = "Store API keys for model providers"

func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: authShortDesc,
		Long:  authLongDesc,
	}

	cmd.AddCommand(newSetCmd(), newListCmd(), newRemoveCmd())

	return cmd
}

func completeProviders(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return credentials.SupportedProviders(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "set <provider>",
		Short:             "Store the API key of a provider",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeProviders,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runSet(cmd.InOrStdin(), cmd.OutOrStdout(), args[0], configDir)
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(cmd.OutOrStdout(), configDir)
		},
	}
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "remove <provider>",
		Short:             "Remove the stored API key of a provider",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeProviders,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runRemove(cmd.OutOrStdout(), args[0], configDir)
		},
	}
}

func runSet(in io.Reader, w io.Writer, name, configDir string) error {
	name = strings.ToLower(strings.TrimSpace(name))

	if !credentials.IsSupportedProvider(name) {
		return fmt.Errorf("unsupported provider: %q\n\nSupported providers: %s",
			name, strings.Join(credentials.SupportedProviders(), ", "))
	}

	apiKey, err := readAPIKey(in, w, name)
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.SetKey(name, apiKey); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n  %s Stored %s key %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(name),
		cliui.DimStyle.Render(credentials.Mask(apiKey)),
	)
	return nil
}

func runList(w io.Writer, configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	entries, err := mgr.Entries()
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintf(w, "\n  %s No stored credentials.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(w, "  Use 'loom auth set <provider>' to store one.\n\n")
		return nil
	}

	fmt.Fprintf(w, "\n  %s %s\n\n", cliui.HeaderStyle.Render("Stored credentials"), cliui.DimStyle.Render(mgr.GetTarget()))
	for _, e := range entries {
		note := "overrides " + provider.EnvVar(e.Provider)
		if !e.StoredAt.IsZero() {
			note = "stored " + e.StoredAt.Format(time.DateOnly) + ", " + note
		}
		fmt.Fprintf(w, "  %s  %s  %s  %s\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(e.Provider),
			credentials.Mask(e.APIKey),
			cliui.DimStyle.Render("("+note+")"),
		)
	}
	fmt.Fprintln(w)

	return nil
}

func runRemove(w io.Writer, name, configDir string) error {
	name = strings.ToLower(strings.TrimSpace(name))

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.RemoveKey(name); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n  %s Removed %s credentials.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(name))
	return nil
}

// readAPIKey prompts with hidden input when in is a terminal, and reads the
// first line otherwise.
func readAPIKey(in io.Reader, w io.Writer, name string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(w, "Enter API key for %s (%s): ", name, provider.EnvVar(name))
		keyBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return string(keyBytes), nil
	}

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}
