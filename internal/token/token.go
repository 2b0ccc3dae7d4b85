// Package token caches the OAuth access token between runs.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Load errors.
var (
	ErrNotFound = errors.New("token not found")
	ErrInvalid  = errors.New("invalid token")
)

// AccessToken is the token returned by the OAuth provider.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Store persists a single access token.
type Store interface {
	// Exists reports whether a token is cached. It does not parse it.
	Exists() bool

	// Load returns the cached token.
	Load() (AccessToken, error)

	// Save replaces the cached token.
	Save(tok AccessToken) error

	// Remove deletes the cached token.
	Remove() error
}

// FileStore keeps the token as JSON in a single file.
type FileStore struct {
	Path string
}

// NewFileStore returns a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Exists checks if the token file exists.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.Path)
	return err == nil
}

// Load reads and decodes the token file.
func (s *FileStore) Load() (AccessToken, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return AccessToken{}, ErrNotFound
		}
		return AccessToken{}, fmt.Errorf("reading %s: %w", s.Path, err)
	}
	return decode(data)
}

// Save writes the token with mode 0600, creating the directory with 0700.
func (s *FileStore) Save(tok AccessToken) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	return os.WriteFile(s.Path, data, 0600)
}

// Remove deletes the token file. It returns ErrNotFound if there is none.
func (s *FileStore) Remove() error {
	if err := os.Remove(s.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func decode(data []byte) (AccessToken, error) {
	var tok AccessToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return AccessToken{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if tok.AccessToken == "" {
		return AccessToken{}, fmt.Errorf("%w: empty access_token", ErrInvalid)
	}
	return tok, nil
}
