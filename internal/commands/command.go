// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"io"

	"github.com/spf13/pflag"

	"ytbatch/internal/config"
	"ytbatch/internal/service"
	"ytbatch/internal/token"
)

// Backend gives commands lazy access to credentials and the tracker.
// Nothing is opened or authorized until a command asks for it.
type Backend interface {
	// Tokens returns the configured token store.
	Tokens() (token.Store, error)

	// Authorize returns a cached token or runs the browser flow.
	Authorize(ctx context.Context) (token.AccessToken, error)

	// Connect authorizes and returns a tracker client.
	Connect(ctx context.Context) (service.Tracker, error)
}

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command talks to the OAuth provider or
	// the tracker. The dispatcher validates settings before running it.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *pflag.FlagSet)

	// Run executes the command.
	// cfg is always provided with settings loaded.
	// backend is always provided; commands call it only when needed.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, backend Backend, args []string, out, errOut io.Writer) int
}
