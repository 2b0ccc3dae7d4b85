// Package auth obtains a Yandex OAuth access token with the
// authorization-code flow and caches it in a token.Store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"ytbatch/internal/config"
	"ytbatch/internal/token"
)

const (
	// Token exchange timeout
	tokenExchangeTimeout = 30 * time.Second

	// Listener shutdown timeout
	shutdownTimeout = 5 * time.Second

	defaultRedirectPath = "/redirect"
)

const successPage = `<html><body><h1>Authorization successful</h1><p>You may close this window.</p></body></html>`

// Flow runs the authorization-code flow against the provider configured in
// Settings. The zero Open and HTTPClient use the system browser and
// http.DefaultClient.
type Flow struct {
	Settings *config.Settings
	Store    token.Store

	// Open launches the browser at the authorization URL.
	Open func(url string) error

	// HTTPClient is used for the token exchange.
	HTTPClient *http.Client
}

// New returns a Flow using the system browser.
func New(settings *config.Settings, store token.Store) *Flow {
	return &Flow{Settings: settings, Store: store, Open: browser.OpenURL}
}

type result struct {
	tok token.AccessToken
	err error
}

// Authorize returns the cached token if there is a usable one. Otherwise
// it sends the user to the provider, waits for the redirect on the local
// listener, exchanges the code and caches the new token.
//
// Failures are *Error, except a failure to cache the new token which is
// *PersistError.
func (f *Flow) Authorize(ctx context.Context) (token.AccessToken, error) {
	if f.Store.Exists() {
		tok, err := f.Store.Load()
		switch {
		case err == nil:
			log.Debug().Msg("using cached access token")
			return tok, nil
		case errors.Is(err, token.ErrInvalid):
			log.Warn().Err(err).Msg("cached token is unusable, authorizing again")
		case errors.Is(err, token.ErrNotFound):
		default:
			return token.AccessToken{}, newError(KindLoadToken, err)
		}
	}

	tok, err := f.obtain(ctx)
	if err != nil {
		return token.AccessToken{}, err
	}

	if err := f.Store.Save(tok); err != nil {
		return token.AccessToken{}, &PersistError{Err: err}
	}
	log.Debug().Int64("expires_in", tok.ExpiresIn).Msg("access token saved")
	return tok, nil
}

func (f *Flow) checkSettings() error {
	if f.Settings == nil {
		return errors.New("settings not loaded")
	}
	var missing []string
	if f.Settings.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if f.Settings.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if f.Settings.RedirectURI == "" {
		missing = append(missing, "redirect_uri")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", config.ErrMissingSetting, strings.Join(missing, ", "))
	}
	return nil
}

func (f *Flow) oauthConfig() *oauth2.Config {
	base := f.Settings.OAuthBaseURL
	if base == "" {
		base = config.DefaultOAuthBaseURL
	}
	base = strings.TrimRight(base, "/")
	return &oauth2.Config{
		ClientID:     f.Settings.ClientID,
		ClientSecret: f.Settings.ClientSecret,
		RedirectURL:  f.Settings.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   base + "/authorize",
			TokenURL:  base + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (f *Flow) timeout() time.Duration {
	if f.Settings.AuthTimeout > 0 {
		return f.Settings.AuthTimeout
	}
	return config.DefaultAuthTimeout
}

func redirectPath(redirectURI string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("invalid redirect_uri: %w", err)
	}
	if u.Path == "" || u.Path == "/" {
		return defaultRedirectPath, nil
	}
	return u.Path, nil
}

// obtain runs the interactive part of the flow. The listener is bound
// before the browser is launched and the timeout starts once it listens.
func (f *Flow) obtain(ctx context.Context) (token.AccessToken, error) {
	if err := f.checkSettings(); err != nil {
		return token.AccessToken{}, newError(KindConfig, err)
	}
	path, err := redirectPath(f.Settings.RedirectURI)
	if err != nil {
		return token.AccessToken{}, newError(KindConfig, err)
	}

	conf := f.oauthConfig()
	state := uuid.NewString()

	addr, err := f.Settings.RedirectListenAddr()
	if err != nil {
		return token.AccessToken{}, newError(KindConfig, err)
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return token.AccessToken{}, newError(KindCustom, fmt.Errorf("listening on %s: %w", addr, err))
	}

	timeout := f.timeout()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	results := make(chan result, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(path, f.handleRedirect(ctx, conf, state, results))

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	defer shutdown(server)

	log.Debug().Str("addr", listener.Addr().String()).Str("path", path).Msg("waiting for redirect")

	authURL := conf.AuthCodeURL(state)
	open := f.Open
	if open == nil {
		open = browser.OpenURL
	}
	if err := open(authURL); err != nil {
		return token.AccessToken{}, newError(KindCustom, fmt.Errorf("opening browser: %w", err))
	}
	log.Info().Str("url", authURL).Msg("complete authorization in the browser")

	select {
	case res := <-results:
		return res.tok, res.err
	case err := <-serveErr:
		return token.AccessToken{}, newError(KindChannel, err)
	case <-timer.C:
		return token.AccessToken{}, newError(KindTimeout, fmt.Errorf("no redirect within %s", timeout))
	case <-ctx.Done():
		return token.AccessToken{}, newError(KindCancelled, ctx.Err())
	}
}

func shutdown(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Debug().Err(err).Msg("redirect listener shutdown")
		_ = server.Close()
	}
}

func (f *Flow) handleRedirect(ctx context.Context, conf *oauth2.Config, state string, results chan<- result) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if providerErr := q.Get("error"); providerErr != "" {
			err := fmt.Errorf("provider returned %s: %s", providerErr, q.Get("error_description"))
			deliver(results, result{err: newError(KindCustom, err)})
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		code := q.Get("code")
		if code == "" {
			deliver(results, result{err: newError(KindCustom, errCodeNotFound)})
			http.Error(w, errCodeNotFound.Error(), http.StatusBadRequest)
			return
		}
		if got := q.Get("state"); got != "" && got != state {
			err := errors.New("redirect state does not match")
			deliver(results, result{err: newError(KindCustom, err)})
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		exchangeCtx, cancel := context.WithTimeout(ctx, tokenExchangeTimeout)
		defer cancel()
		if f.HTTPClient != nil {
			exchangeCtx = context.WithValue(exchangeCtx, oauth2.HTTPClient, f.HTTPClient)
		}

		tok, err := conf.Exchange(exchangeCtx, code)
		if err != nil {
			log.Debug().Err(err).Msg("token exchange failed")
			deliver(results, result{err: newError(KindRequest, err)})
			http.Error(w, "token exchange failed", http.StatusBadGateway)
			return
		}

		deliver(results, result{tok: accessToken(tok)})
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, successPage)
	}
}

// deliver hands res to the waiter. Only the first result is kept.
func deliver(results chan<- result, res result) {
	select {
	case results <- res:
	default:
		log.Debug().Msg("redirect result already delivered, dropping")
	}
}

func accessToken(t *oauth2.Token) token.AccessToken {
	expiresIn := t.ExpiresIn
	if expiresIn == 0 && !t.Expiry.IsZero() {
		expiresIn = int64(time.Until(t.Expiry).Round(time.Second) / time.Second)
	}
	return token.AccessToken{AccessToken: t.AccessToken, ExpiresIn: expiresIn}
}
