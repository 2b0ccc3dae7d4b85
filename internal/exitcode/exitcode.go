// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, invalid batch file).
	UserError = 1

	// AuthError indicates an auth/config error.
	AuthError = 2

	// BackendError indicates a tracker API or network error.
	BackendError = 3

	// StorageError indicates a failure persisting local state
	// (token cache or batch checkpoint).
	StorageError = 4
)
