package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"ytbatch/internal/batch"
	"ytbatch/internal/config"
	"ytbatch/internal/exitcode"
	"ytbatch/internal/journal"
	"ytbatch/internal/output"
	"ytbatch/internal/processor"
)

func init() {
	Register(&RunCmd{})
}

// RunCmd implements the run command.
type RunCmd struct {
	tasks       string
	stampUnique bool
	noJournal   bool
}

func (c *RunCmd) Name() string      { return "run" }
func (c *RunCmd) Aliases() []string { return []string{"run_tasks"} }
func (c *RunCmd) Synopsis() string  { return "Apply the pending mutations of a batch file" }
func (c *RunCmd) Usage() string {
	return "ytbatch run [common flags] [--tasks <file>] [--stamp-unique] [--no-journal]"
}
func (c *RunCmd) NeedsAuth() bool { return true }

func (c *RunCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.tasks, "tasks", config.DefaultTasksFile, "batch file (.json, .yaml or .yml)")
	fs.BoolVar(&c.stampUnique, "stamp-unique", false, "give every creation a unique token before running")
	fs.BoolVar(&c.noJournal, "no-journal", false, "do not record applied mutations in the journal")
}

// SetTasks sets the batch file path (for testing).
func (c *RunCmd) SetTasks(path string) {
	c.tasks = path
}

func (c *RunCmd) Run(ctx context.Context, cfg *config.Config, backend Backend, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	store := batch.NewStore(c.tasks, cfg.Settings.DefaultQueue)
	b, err := store.Load()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	if c.stampUnique {
		if n := b.StampUnique(uuid.NewString); n > 0 {
			if err := store.Save(b); err != nil {
				fmt.Fprintf(errOut, "error: saving unique tokens: %v\n", err)
				return exitcode.StorageError
			}
			log.Debug().Int("count", n).Msg("unique tokens assigned")
		}
	}

	tracker, err := backend.Connect(ctx)
	if err != nil {
		return report(errOut, err)
	}

	var recs recorders
	if !cfg.Quiet {
		recs = append(recs, printer{out: out})
	}
	if !c.noJournal {
		j, err := c.openJournal(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("journal unavailable, continuing without it")
		} else {
			defer j.Close()
			recs = append(recs, j.StartRun(absPath(c.tasks)))
		}
	}

	p := &processor.Processor{
		Tracker:      tracker,
		Checkpointer: store,
		Delay:        cfg.Settings.CallDelay,
		Recorder:     recs,
	}
	sum, err := p.Run(ctx, b)

	if !cfg.Quiet {
		output.FormatSummary(out, sum, b.Pending())
	}
	if err != nil {
		return report(errOut, err)
	}
	return exitcode.Success
}

func (c *RunCmd) openJournal(cfg *config.Config) (*journal.Journal, error) {
	path := cfg.JournalPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	return journal.Open(path)
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// recorders fans an applied mutation out to several recorders. Every
// recorder is called; the first error is returned.
type recorders []processor.Recorder

func (rs recorders) Record(ctx context.Context, a processor.Applied) error {
	var first error
	for _, r := range rs {
		if err := r.Record(ctx, a); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// printer prints applied mutations as they happen.
type printer struct {
	out io.Writer
}

func (p printer) Record(_ context.Context, a processor.Applied) error {
	output.FormatApplied(p.out, a)
	return nil
}
