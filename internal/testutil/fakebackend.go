package testutil

import (
	"context"

	"ytbatch/internal/service"
	"ytbatch/internal/token"
)

// FakeBackend implements commands.Backend with a fixed token store and
// tracker.
type FakeBackend struct {
	Store   token.Store
	Tracker service.Tracker

	// Token is returned by Authorize when AuthorizeErr is nil. It is saved
	// to Store, as a real authorization would do.
	Token token.AccessToken

	// Error injection for testing
	TokensErr    error
	AuthorizeErr error

	// AuthorizeCalls counts Authorize calls, including those from Connect.
	AuthorizeCalls int
}

// NewFakeBackend returns a backend over store and tracker.
func NewFakeBackend(store token.Store, tracker service.Tracker) *FakeBackend {
	return &FakeBackend{
		Store:   store,
		Tracker: tracker,
		Token:   token.AccessToken{AccessToken: "fake-token", ExpiresIn: 3600},
	}
}

// Tokens implements commands.Backend.
func (f *FakeBackend) Tokens() (token.Store, error) {
	if f.TokensErr != nil {
		return nil, f.TokensErr
	}
	return f.Store, nil
}

// Authorize implements commands.Backend.
func (f *FakeBackend) Authorize(ctx context.Context) (token.AccessToken, error) {
	f.AuthorizeCalls++
	if f.AuthorizeErr != nil {
		return token.AccessToken{}, f.AuthorizeErr
	}
	if f.Store != nil {
		if err := f.Store.Save(f.Token); err != nil {
			return token.AccessToken{}, err
		}
	}
	return f.Token, nil
}

// Connect implements commands.Backend.
func (f *FakeBackend) Connect(ctx context.Context) (service.Tracker, error) {
	if _, err := f.Authorize(ctx); err != nil {
		return nil, err
	}
	return f.Tracker, nil
}
