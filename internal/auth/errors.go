package auth

import (
	"errors"
	"fmt"
)

// Kind classifies an authorization failure.
type Kind string

const (
	// KindConfig means a required OAuth setting is missing.
	KindConfig Kind = "config"

	// KindRequest means the token exchange request failed or was rejected.
	KindRequest Kind = "request"

	// KindTimeout means no redirect arrived in time.
	KindTimeout Kind = "timeout"

	// KindChannel means the redirect listener stopped before delivering a result.
	KindChannel Kind = "channel"

	// KindLoadToken means the cached token could not be read.
	KindLoadToken Kind = "load_token"

	// KindCustom covers browser launch, listener bind and redirect problems.
	KindCustom Kind = "custom"

	// KindCancelled means the context was cancelled while waiting.
	KindCancelled Kind = "cancelled"
)

// Error is returned by Flow.Authorize for every failure except persisting
// the obtained token.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("authorization failed (%s)", e.Kind)
	}
	return fmt.Sprintf("authorization failed (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels such as ErrTimeout by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrConfig    = &Error{Kind: KindConfig}
	ErrRequest   = &Error{Kind: KindRequest}
	ErrTimeout   = &Error{Kind: KindTimeout}
	ErrChannel   = &Error{Kind: KindChannel}
	ErrLoadToken = &Error{Kind: KindLoadToken}
	ErrCustom    = &Error{Kind: KindCustom}
	ErrCancelled = &Error{Kind: KindCancelled}
)

// PersistError means a token was obtained but could not be cached.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("saving access token: %v", e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

var errCodeNotFound = errors.New("authorization code not found")
