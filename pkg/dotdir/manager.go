// Package dotdir manages the .loom/ and ~/.loom directories.
//
// The directory holds config.toml, credentials.toml, the default SQLite
// databases and session.json, the conversation "loom chat" resumes.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirName = ".loom"

	// HomeEnv names a directory that replaces ~/.loom and any local .loom/.
	HomeEnv = "LOOM_HOME"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target resolves the .loom/ directory, creating it when missing, and
// returns its absolute path. The first of these wins:
//  1. overrideDir
//  2. $LOOM_HOME
//  3. ./.loom/ when it already exists
//  4. ~/.loom/
func (m *Manager) Target(overrideDir string) (string, error) {
	dir, err := m.resolve(overrideDir)
	if err != nil {
		return "", err
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fmt.Errorf("creating loom directory %s: %w", abs, err)
	}

	return abs, nil
}

func (m *Manager) resolve(overrideDir string) (string, error) {
	if overrideDir != "" {
		return overrideDir, nil
	}
	if env := os.Getenv(HomeEnv); env != "" {
		return env, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	if info, err := os.Stat(filepath.Join(cwd, dirName)); err == nil && info.IsDir() {
		return filepath.Join(cwd, dirName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Path returns the absolute path of name inside the target directory.
func (m *Manager) Path(overrideDir, name string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// WriteFile replaces path with data, readable by the owner only. The data
// lands in a sibling temp file first, so readers never see a partial file.
func WriteFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
