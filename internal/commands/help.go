package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"ytbatch/internal/config"
	"ytbatch/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "ytbatch help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, backend Backend, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  ytbatch run [common flags] [--tasks <file>] [--stamp-unique] [--no-journal]
  ytbatch status [common flags] [--tasks <file>]
  ytbatch template [common flags] [--tasks <file>] [--force]
  ytbatch init [common flags] [--force]
  ytbatch login [common flags] [--force]
  ytbatch logout [common flags]
  ytbatch history [common flags] [--limit <n>]
  ytbatch help
  ytbatch version

The batch file lists pending mutations under "created", "updated" and
"deleted". run applies them in that order and rewrites the file after
every accepted call, so an interrupted run resumes where it stopped.

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
