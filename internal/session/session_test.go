package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytbatch/internal/auth"
	"ytbatch/internal/config"
	"ytbatch/internal/service"
	"ytbatch/internal/session"
	"ytbatch/internal/token"
)

func testConfig(t *testing.T, apiURL string) *config.Config {
	t.Helper()
	cfg, err := config.New(t.TempDir())
	require.NoError(t, err)
	cfg.Settings = &config.Settings{
		OrganizationID: "org-7",
		ClientID:       "cid",
		ClientSecret:   "secret",
		RedirectURI:    config.DefaultRedirectURI,
		APIBaseURL:     apiURL,
		TokenBackend:   config.TokenBackendFile,
	}
	return cfg
}

func TestTokens_FileBackend(t *testing.T) {
	cfg := testConfig(t, "")
	s := session.New(cfg)

	store, err := s.Tokens()
	require.NoError(t, err)
	fileStore, ok := store.(*token.FileStore)
	require.True(t, ok)
	assert.Equal(t, cfg.TokenPath(), fileStore.Path)

	again, err := s.Tokens()
	require.NoError(t, err)
	assert.Same(t, store, again)
}

func TestConnect_UsesCachedToken(t *testing.T) {
	var gotAuth, gotOrg string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotOrg = r.Header.Get("X-Org-ID")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"key":"Q-1","id":"1"}`))
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	require.NoError(t, token.NewFileStore(cfg.TokenPath()).Save(token.AccessToken{AccessToken: "cached-token"}))

	s := session.New(cfg)
	s.Open = func(string) error {
		t.Fatal("browser must not be opened")
		return nil
	}

	tracker, err := s.Connect(context.Background())
	require.NoError(t, err)

	issue, err := tracker.CreateIssue(context.Background(), service.CreateIssueRequest{Queue: "Q", Summary: "s"})
	require.NoError(t, err)
	assert.Equal(t, "Q-1", issue.Key)
	assert.Equal(t, "OAuth cached-token", gotAuth)
	assert.Equal(t, "org-7", gotOrg)
}

func TestConnect_InvalidSettings(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Settings.OrganizationID = ""

	_, err := session.New(cfg).Connect(context.Background())
	assert.ErrorIs(t, err, auth.ErrConfig)
	assert.ErrorIs(t, err, config.ErrMissingSetting)
}
