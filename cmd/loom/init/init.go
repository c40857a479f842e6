// Package initcmder provides the init command for initializing a local .loom
// directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/loom/pkg/cliui"
	"github.com/papercomputeco/loom/pkg/config"
)

const dirName = ".loom"

// gitignore keeps keys, databases and logs out of the enclosing repository.
const gitignore = `credentials.toml
session.json
*.sqlite
*.sqlite-*
*.log
`

const initLongDesc string = `Initialize a new .loom/ directory in the current working directory.

Creates a local .loom/ directory that takes precedence over the default
~/.loom/ directory for configuration, credentials, storage and the chat
session. A config.toml is written with defaults, or with the model
settings of a provider preset. An existing config.toml is kept unless
--force is given.

A .gitignore is added so credentials, databases and logs in the
directory are never committed.

Presets: openai, anthropic, ollama

Examples:
  loom init
  loom init --preset anthropic
  loom init --preset openai --force`

const initShortDesc string = "Initialize a local .loom/ directory"

type initer struct {
	preset string
	force  bool
}

func NewInitCmd() *cobra.Command {
	i := &initer{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}
			return i.run(cmd.OutOrStdout(), filepath.Join(cwd, dirName))
		},
	}

	cmd.Flags().StringVar(&i.preset, "preset", "",
		"Provider preset for config.toml ("+strings.Join(config.ValidPresetNames(), ", ")+")")
	cmd.Flags().BoolVar(&i.force, "force", false, "Overwrite an existing config.toml")

	return cmd
}

func (i *initer) run(w io.Writer, dir string) error {
	cfg := config.NewDefaultConfig()
	if i.preset != "" {
		var err error
		if cfg, err = config.PresetConfig(i.preset); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .loom directory: %w", err)
	}
	if err := writeIfMissing(filepath.Join(dir, ".gitignore"), gitignore); err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}

	exists, err := fileExists(cfger.GetTarget())
	if err != nil {
		return fmt.Errorf("checking config: %w", err)
	}
	if exists && !i.force {
		fmt.Fprintf(w, "  %s Already initialized: %s\n", cliui.SuccessMark, dir)
		fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render("Use --force to overwrite config.toml."))
		return nil
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(w, "  %s Initialized %s\n", cliui.SuccessMark, dir)
	cliui.KeyValue(w, "Model provider", cfg.Model.Provider)
	if cfg.Model.Name != "" {
		cliui.KeyValue(w, "Model", cfg.Model.Name)
	}
	cliui.KeyValue(w, "Storage", cfg.Storage.Driver)
	return nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func writeIfMissing(path, content string) error {
	exists, err := fileExists(path)
	if err != nil || exists {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
