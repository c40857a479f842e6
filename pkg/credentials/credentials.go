// Package credentials stores model provider API keys in credentials.toml
// inside the .loom/ directory.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/loom/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

// keyedProviders are the model providers that authenticate with an API key.
var keyedProviders = []string{"anthropic", "openai"}

type Manager struct {
	path string
}

// NewManager resolves credentials.toml inside the .loom/ directory, honoring
// override the same way config.toml does.
func NewManager(override string) (*Manager, error) {
	path, err := dotdir.NewManager().Path(override, credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("resolving credentials path: %w", err)
	}
	return &Manager{path: path}, nil
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.path
}

// Load reads credentials.toml. A missing file yields empty credentials.
func (m *Manager) Load() (*Credentials, error) {
	creds := &Credentials{Version: currentVersion}

	data, err := os.ReadFile(m.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading credentials: %w", err)
	default:
		if err := toml.Unmarshal(data, creds); err != nil {
			return nil, fmt.Errorf("parsing credentials %s: %w", m.path, err)
		}
		if creds.Version != currentVersion {
			return nil, fmt.Errorf("unsupported credentials version %d", creds.Version)
		}
	}

	if creds.Providers == nil {
		creds.Providers = map[string]ProviderCredential{}
	}
	return creds, nil
}

// Save replaces credentials.toml with creds.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	if err := dotdir.WriteFile(m.path, buf.Bytes()); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// update loads, applies fn and saves. fn returning false skips the write.
func (m *Manager) update(fn func(*Credentials) bool) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}
	if !fn(creds) {
		return nil
	}
	return m.Save(creds)
}

// SetKey stores key for provider, replacing any earlier key.
func (m *Manager) SetKey(provider, key string) error {
	if !IsSupportedProvider(provider) {
		return fmt.Errorf("provider %q does not use API keys (supported: %s)",
			provider, strings.Join(keyedProviders, ", "))
	}

	return m.update(func(c *Credentials) bool {
		c.Providers[provider] = ProviderCredential{
			APIKey:   strings.TrimSpace(key),
			StoredAt: time.Now().UTC().Truncate(time.Second),
		}
		return true
	})
}

// RemoveKey deletes the stored key of provider. Unknown providers are a no-op.
func (m *Manager) RemoveKey(provider string) error {
	return m.update(func(c *Credentials) bool {
		if _, ok := c.Providers[provider]; !ok {
			return false
		}
		delete(c.Providers, provider)
		return true
	})
}

// GetKey returns the stored key of provider, or "" when none is stored.
func (m *Manager) GetKey(provider string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}
	return creds.Providers[provider].APIKey, nil
}

// Entries returns every stored credential ordered by provider name.
func (m *Manager) Entries() ([]Entry, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(creds.Providers))
	for name, pc := range creds.Providers {
		entries = append(entries, Entry{Provider: name, ProviderCredential: pc})
	}
	slices.SortFunc(entries, func(a, b Entry) int { return strings.Compare(a.Provider, b.Provider) })
	return entries, nil
}

// SupportedProviders returns the providers that take an API key.
func SupportedProviders() []string {
	return slices.Clone(keyedProviders)
}

func IsSupportedProvider(provider string) bool {
	return slices.Contains(keyedProviders, provider)
}

// Mask hides all but the last four characters of key.
func Mask(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}
