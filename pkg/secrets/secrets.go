// Package secrets generates and persists the database credentials a stack
// needs across re-runs.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Credentials holds the passwords injected into the database and application
// containers. Reusing them across runs keeps an existing data volume usable.
type Credentials struct {
	RootPassword string `json:"root_password"`
	AppPassword  string `json:"app_password"`
}

// GeneratePassword returns a URL-safe random password with 192 bits of
// entropy.
func GeneratePassword() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Generate returns a fresh credential pair.
func Generate() (Credentials, error) {
	root, err := GeneratePassword()
	if err != nil {
		return Credentials{}, err
	}
	app, err := GeneratePassword()
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{RootPassword: root, AppPassword: app}, nil
}

// Load reads persisted credentials. A missing file returns (nil, nil).
func Load(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read credentials file %s: %w", path, err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %s: %w", path, err)
	}
	if creds.RootPassword == "" || creds.AppPassword == "" {
		return nil, fmt.Errorf("credentials file %s is incomplete", path)
	}
	return &creds, nil
}

// Save persists credentials with owner-only permissions.
func Save(path string, creds Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials file %s: %w", path, err)
	}
	return nil
}
