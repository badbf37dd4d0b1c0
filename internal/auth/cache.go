// Package auth manages the persisted credential cache and its renewal
// lifecycle. Exactly one valid credential exists per run; it is obtained
// before any download work starts and treated as read-only afterwards.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"daytrip/internal/shared"
)

// Authenticator is the slice of the streaming collaborator the cache needs:
// a lightweight validity probe and the interactive login flow.
type Authenticator interface {
	Validate(ctx context.Context, cred *shared.Credential) (bool, error)
	Login(ctx context.Context) (*shared.Credential, error)
}

// Cache stores a credential as JSON at a fixed per-user location.
type Cache struct {
	path  string
	debug bool
}

// NewCache creates a credential cache backed by the given file path.
func NewCache(path string, debug bool) *Cache {
	return &Cache{path: path, debug: debug}
}

// DefaultCachePath returns the per-user credential cache file.
func DefaultCachePath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user cache directory: %w", err)
	}
	return filepath.Join(dir, "daytrip", "credentials.json"), nil
}

// Load reads the cached credential. A missing cache file is not an error;
// it returns (nil, nil).
func (c *Cache) Load() (*shared.Credential, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential cache: %w", err)
	}

	var cred shared.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		// A corrupt cache behaves like an absent one.
		shared.DebugPrint(c.debug, "discarding unreadable credential cache: %v", err)
		return nil, nil
	}
	if cred.AccessToken == "" {
		return nil, nil
	}
	return &cred, nil
}

// Store persists the credential, creating the cache directory if needed.
// The file is user-readable only.
func (c *Cache) Store(cred *shared.Credential) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	if err := shared.CreateDirIfNotExists(filepath.Dir(c.path)); err != nil {
		return fmt.Errorf("failed to create credential cache directory: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credential cache: %w", err)
	}
	return nil
}

// EnsureValid returns the cached credential when the collaborator accepts
// it, otherwise runs the interactive login flow and persists the renewal
// before returning it.
func (c *Cache) EnsureValid(ctx context.Context, svc Authenticator) (*shared.Credential, error) {
	cred, err := c.Load()
	if err != nil {
		return nil, err
	}

	if cred != nil && !cred.Expired() {
		ok, err := svc.Validate(ctx, cred)
		if err != nil {
			return nil, &shared.AuthError{Reason: "credential validation failed", Err: err}
		}
		if ok {
			shared.DebugPrint(c.debug, "using cached credentials")
			return cred, nil
		}
		shared.ColorWarning.Println("⚠️ Cached credentials were rejected, logging in again")
	}

	cred, err = svc.Login(ctx)
	if err != nil {
		var aerr *shared.AuthError
		if errors.As(err, &aerr) {
			return nil, err
		}
		return nil, &shared.AuthError{Reason: "interactive login failed", Err: err}
	}

	if err := c.Store(cred); err != nil {
		return nil, err
	}
	return cred, nil
}
