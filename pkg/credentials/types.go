package credentials

import "time"

// Credentials represents the stored API credentials in credentials.toml.
type Credentials struct {
	Version   int                           `toml:"version"`
	Providers map[string]ProviderCredential `toml:"providers"`
}

// ProviderCredential holds the API key for a single provider.
type ProviderCredential struct {
	APIKey   string    `toml:"api_key"`
	StoredAt time.Time `toml:"stored_at,omitempty"`
}

// Entry is a stored credential paired with its provider name.
type Entry struct {
	Provider string
	ProviderCredential
}
