// Package session wires the configured token store, the OAuth flow and the
// tracker client together for the CLI commands.
package session

import (
	"context"
	"path/filepath"

	"ytbatch/internal/auth"
	"ytbatch/internal/backend/yandextracker"
	"ytbatch/internal/config"
	"ytbatch/internal/service"
	"ytbatch/internal/token"
)

// keyringDir holds the encrypted file keyring on systems without a native one.
const keyringDir = "keyring"

// Session implements commands.Backend for one CLI invocation.
type Session struct {
	cfg   *config.Config
	store token.Store

	// Open overrides the browser launcher when set.
	Open func(url string) error
}

// New returns a Session for cfg. cfg.Settings must be loaded.
func New(cfg *config.Config) *Session {
	return &Session{cfg: cfg}
}

// Tokens returns the token store selected by the token_backend setting.
func (s *Session) Tokens() (token.Store, error) {
	if s.store != nil {
		return s.store, nil
	}
	switch s.cfg.Settings.TokenBackend {
	case config.TokenBackendKeyring:
		if err := s.cfg.EnsureDir(); err != nil {
			return nil, err
		}
		store, err := token.OpenKeyring(filepath.Join(s.cfg.Dir, keyringDir))
		if err != nil {
			return nil, err
		}
		s.store = store
	default:
		s.store = token.NewFileStore(s.cfg.TokenPath())
	}
	return s.store, nil
}

// Authorize returns a cached token or runs the browser flow.
func (s *Session) Authorize(ctx context.Context) (token.AccessToken, error) {
	store, err := s.Tokens()
	if err != nil {
		return token.AccessToken{}, &auth.Error{Kind: auth.KindLoadToken, Err: err}
	}
	flow := auth.New(s.cfg.Settings, store)
	if s.Open != nil {
		flow.Open = s.Open
	}
	return flow.Authorize(ctx)
}

// Connect authorizes and returns a tracker client for the configured
// organization.
func (s *Session) Connect(ctx context.Context) (service.Tracker, error) {
	if err := s.cfg.Settings.Validate(); err != nil {
		return nil, &auth.Error{Kind: auth.KindConfig, Err: err}
	}
	tok, err := s.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	return yandextracker.New(s.cfg.Settings.APIBaseURL, tok.AccessToken, s.cfg.Settings.OrganizationID), nil
}
