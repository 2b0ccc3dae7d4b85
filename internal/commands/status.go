package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"ytbatch/internal/batch"
	"ytbatch/internal/config"
	"ytbatch/internal/exitcode"
	"ytbatch/internal/output"
)

func init() {
	Register(&StatusCmd{})
}

// StatusCmd implements the status command.
// Shows where settings live, whether a token is cached and what the batch
// file still holds. Makes no network calls.
type StatusCmd struct {
	tasks string
}

func (c *StatusCmd) Name() string      { return "status" }
func (c *StatusCmd) Aliases() []string { return nil }
func (c *StatusCmd) Synopsis() string  { return "Show login state and pending mutations" }
func (c *StatusCmd) Usage() string     { return "ytbatch status [common flags] [--tasks <file>]" }
func (c *StatusCmd) NeedsAuth() bool   { return false }

func (c *StatusCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.tasks, "tasks", config.DefaultTasksFile, "batch file")
}

// SetTasks sets the batch file path (for testing).
func (c *StatusCmd) SetTasks(path string) {
	c.tasks = path
}

func (c *StatusCmd) Run(ctx context.Context, cfg *config.Config, backend Backend, args []string, out, errOut io.Writer) int {
	settingsState := "present"
	if !cfg.HasSettings() {
		settingsState = "missing"
	} else if err := cfg.Settings.Validate(); err != nil {
		settingsState = err.Error()
	}
	fmt.Fprintf(out, "config:  %s (%s)\n", cfg.SettingsPath(), settingsState)

	tokenState := "absent"
	store, err := backend.Tokens()
	switch {
	case err != nil:
		tokenState = "unavailable: " + err.Error()
	case store.Exists():
		if _, err := store.Load(); err != nil {
			tokenState = "invalid"
		} else {
			tokenState = "present"
		}
	}
	backendName := cfg.Settings.TokenBackend
	if backendName == "" {
		backendName = config.TokenBackendFile
	}
	fmt.Fprintf(out, "token:   %s (%s)\n", tokenState, backendName)

	tasks := batch.NewStore(c.tasks, cfg.Settings.DefaultQueue)
	b, err := tasks.Peek()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(out, "batch:   %s (missing)\n", c.tasks)
			return exitcode.Success
		}
		fmt.Fprintf(out, "batch:   %s\n", c.tasks)
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	b.ApplyDefaultQueue(cfg.Settings.DefaultQueue)

	fmt.Fprintf(out, "batch:   %s (%d pending)\n", c.tasks, b.Pending())
	output.FormatPending(out, b)
	return exitcode.Success
}
