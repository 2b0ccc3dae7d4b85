package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"ytbatch/internal/config"
	"ytbatch/internal/exitcode"
	"ytbatch/internal/journal"
	"ytbatch/internal/output"
)

func init() {
	Register(&HistoryCmd{})
}

// HistoryCmd implements the history command.
type HistoryCmd struct {
	limit int
}

func (c *HistoryCmd) Name() string      { return "history" }
func (c *HistoryCmd) Aliases() []string { return nil }
func (c *HistoryCmd) Synopsis() string  { return "List recently applied mutations" }
func (c *HistoryCmd) Usage() string     { return "ytbatch history [common flags] [--limit <n>]" }
func (c *HistoryCmd) NeedsAuth() bool   { return false }

func (c *HistoryCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.IntVar(&c.limit, "limit", 20, "number of entries to show")
}

// SetLimit sets the entry limit (for testing).
func (c *HistoryCmd) SetLimit(limit int) {
	c.limit = limit
}

func (c *HistoryCmd) Run(ctx context.Context, cfg *config.Config, backend Backend, args []string, out, errOut io.Writer) int {
	if c.limit < 1 {
		fmt.Fprintf(errOut, "error: invalid limit: %d\n", c.limit)
		return exitcode.UserError
	}

	path := cfg.JournalPath()
	if _, err := os.Stat(path); err != nil {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no history")
		}
		return exitcode.Success
	}

	j, err := journal.Open(path)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.StorageError
	}
	defer j.Close()

	entries, err := j.Recent(ctx, c.limit)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.StorageError
	}
	if len(entries) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no history")
		}
		return exitcode.Success
	}

	output.FormatHistory(out, entries)
	return exitcode.Success
}
