package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"ytbatch/internal/auth"
	"ytbatch/internal/backend/yandextracker"
	"ytbatch/internal/config"
	"ytbatch/internal/exitcode"
	"ytbatch/internal/processor"
)

// exitCodeFor maps an error to the exit code the CLI reports for it.
func exitCodeFor(err error) int {
	var (
		persistErr    *auth.PersistError
		checkpointErr *processor.CheckpointError
		authErr       *auth.Error
		remoteErr     *processor.RemoteError
		apiErr        *yandextracker.APIError
		transportErr  *yandextracker.TransportError
		parseErr      *yandextracker.ParseError
	)
	switch {
	case errors.As(err, &persistErr), errors.As(err, &checkpointErr):
		return exitcode.StorageError
	case errors.As(err, &authErr), errors.Is(err, config.ErrMissingSetting):
		return exitcode.AuthError
	case errors.As(err, &remoteErr), errors.As(err, &apiErr),
		errors.As(err, &transportErr), errors.As(err, &parseErr):
		return exitcode.BackendError
	default:
		return exitcode.UserError
	}
}

// report prints err with hints and returns the matching exit code.
func report(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error: %v\n", err)

	var apiErr *yandextracker.APIError
	var checkpointErr *processor.CheckpointError
	switch {
	case errors.As(err, &apiErr) && apiErr.Unauthorized():
		fmt.Fprintln(errOut, "hint: the access token was rejected (run: ytbatch logout, then ytbatch login)")
	case errors.As(err, &checkpointErr):
		fmt.Fprintf(errOut, "hint: %s %s was applied but is still listed in the batch file; remove it before rerunning\n",
			checkpointErr.After.Kind, checkpointErr.After.IssueKey)
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(errOut, "hint: interrupted; rerun to resume from the last checkpoint")
	}
	return exitCodeFor(err)
}
