package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"ytbatch/internal/config"
	"ytbatch/internal/exitcode"
)

func init() {
	Register(&InitCmd{})
}

// InitCmd implements the init command.
type InitCmd struct {
	force bool
}

func (c *InitCmd) Name() string      { return "init" }
func (c *InitCmd) Aliases() []string { return []string{"template_config"} }
func (c *InitCmd) Synopsis() string  { return "Write a sample config.toml" }
func (c *InitCmd) Usage() string     { return "ytbatch init [common flags] [--force]" }
func (c *InitCmd) NeedsAuth() bool   { return false }

func (c *InitCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&c.force, "force", false, "overwrite an existing config file")
}

func (c *InitCmd) Run(ctx context.Context, cfg *config.Config, backend Backend, args []string, out, errOut io.Writer) int {
	if err := cfg.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: creating config directory: %v\n", err)
		return exitcode.StorageError
	}

	path := cfg.SettingsPath()
	if err := config.WriteSampleSettings(path, c.force); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		if errors.Is(err, config.ErrExists) {
			fmt.Fprintln(errOut, "hint: use --force to overwrite")
			return exitcode.UserError
		}
		return exitcode.StorageError
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "wrote %s\n", path)
	}
	return exitcode.Success
}
