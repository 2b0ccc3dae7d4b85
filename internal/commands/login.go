package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"ytbatch/internal/config"
	"ytbatch/internal/exitcode"
	"ytbatch/internal/token"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	force bool
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Authorize with Yandex OAuth" }
func (c *LoginCmd) Usage() string     { return "ytbatch login [common flags] [--force]" }
func (c *LoginCmd) NeedsAuth() bool   { return true }

func (c *LoginCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&c.force, "force", false, "discard the cached token and authorize again")
}

// SetForce sets the force flag (for testing).
func (c *LoginCmd) SetForce(force bool) {
	c.force = force
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, backend Backend, args []string, out, errOut io.Writer) int {
	store, err := backend.Tokens()
	if err != nil {
		fmt.Fprintf(errOut, "error: opening token store: %v\n", err)
		return exitcode.StorageError
	}

	if c.force {
		if err := store.Remove(); err != nil && !errors.Is(err, token.ErrNotFound) {
			fmt.Fprintf(errOut, "error: failed to remove token: %v\n", err)
			return exitcode.StorageError
		}
	} else if _, err := store.Load(); err == nil {
		if !cfg.Quiet {
			fmt.Fprintln(out, "already logged in")
		}
		return exitcode.Success
	}

	if _, err := backend.Authorize(ctx); err != nil {
		return report(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
