package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/99designs/keyring"
)

const (
	keyringService = "ytbatch"
	keyringKey     = "access_token"

	// KeyringPasswordEnv supplies the encrypted file keyring password
	// without a terminal prompt.
	KeyringPasswordEnv = "YTBATCH_KEYRING_PASSWORD"
)

// KeyringStore keeps the token in the system keyring.
type KeyringStore struct {
	ring keyring.Keyring
}

// OpenKeyring opens the system keyring. fileDir is used by the encrypted
// file backend on systems without a native keyring.
func OpenKeyring(fileDir string) (*KeyringStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: keyringService,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         filePassword,
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewKeyringStore(ring), nil
}

// filePassword reads the file keyring password from the environment or,
// failing that, from the terminal.
func filePassword(prompt string) (string, error) {
	if pw := os.Getenv(KeyringPasswordEnv); pw != "" {
		return pw, nil
	}
	return keyring.TerminalPrompt(prompt)
}

// NewKeyringStore wraps an already opened keyring.
func NewKeyringStore(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

// Exists reports whether the keyring holds a token item.
func (s *KeyringStore) Exists() bool {
	_, err := s.ring.Get(keyringKey)
	return err == nil
}

// Load reads the token item.
func (s *KeyringStore) Load() (AccessToken, error) {
	item, err := s.ring.Get(keyringKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return AccessToken{}, ErrNotFound
		}
		return AccessToken{}, fmt.Errorf("getting token from keyring: %w", err)
	}
	return decode(item.Data)
}

// Save replaces the token item.
func (s *KeyringStore) Save(tok AccessToken) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	err = s.ring.Set(keyring.Item{
		Key:         keyringKey,
		Data:        data,
		Label:       "ytbatch access token",
		Description: "Yandex Tracker OAuth access token",
	})
	if err != nil {
		return fmt.Errorf("setting token in keyring: %w", err)
	}
	return nil
}

// Remove deletes the token item.
func (s *KeyringStore) Remove() error {
	if err := s.ring.Remove(keyringKey); err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("removing token from keyring: %w", err)
	}
	return nil
}
