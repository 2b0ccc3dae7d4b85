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
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string      { return "logout" }
func (c *LogoutCmd) Aliases() []string { return nil }
func (c *LogoutCmd) Synopsis() string  { return "Remove the cached access token" }
func (c *LogoutCmd) Usage() string     { return "ytbatch logout [common flags]" }
func (c *LogoutCmd) NeedsAuth() bool   { return false }

func (c *LogoutCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, backend Backend, args []string, out, errOut io.Writer) int {
	store, err := backend.Tokens()
	if err != nil {
		fmt.Fprintf(errOut, "error: opening token store: %v\n", err)
		return exitcode.StorageError
	}

	if err := store.Remove(); err != nil {
		if errors.Is(err, token.ErrNotFound) {
			if !cfg.Quiet {
				fmt.Fprintln(out, "not logged in")
			}
			return exitcode.Success
		}
		fmt.Fprintf(errOut, "error: failed to remove token: %v\n", err)
		return exitcode.StorageError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
