package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"ytbatch/internal/batch"
	"ytbatch/internal/config"
	"ytbatch/internal/exitcode"
)

func init() {
	Register(&TemplateCmd{})
}

// TemplateCmd implements the template command.
type TemplateCmd struct {
	tasks string
	force bool
}

func (c *TemplateCmd) Name() string      { return "template" }
func (c *TemplateCmd) Aliases() []string { return []string{"template_tasks"} }
func (c *TemplateCmd) Synopsis() string  { return "Write an example batch file" }
func (c *TemplateCmd) Usage() string {
	return "ytbatch template [common flags] [--tasks <file>] [--force]"
}
func (c *TemplateCmd) NeedsAuth() bool { return false }

func (c *TemplateCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.tasks, "tasks", config.DefaultTasksFile, "batch file to write (.json, .yaml or .yml)")
	fs.BoolVar(&c.force, "force", false, "overwrite an existing file")
}

// SetTasks sets the batch file path (for testing).
func (c *TemplateCmd) SetTasks(path string) {
	c.tasks = path
}

func (c *TemplateCmd) Run(ctx context.Context, cfg *config.Config, backend Backend, args []string, out, errOut io.Writer) int {
	if err := batch.NewStore(c.tasks, "").WriteTemplate(c.force); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		if errors.Is(err, batch.ErrExists) {
			fmt.Fprintln(errOut, "hint: use --force to overwrite")
			return exitcode.UserError
		}
		return exitcode.StorageError
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "wrote %s\n", c.tasks)
	}
	return exitcode.Success
}
