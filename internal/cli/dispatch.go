package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"ytbatch/internal/commands"
	"ytbatch/internal/config"
	"ytbatch/internal/exitcode"
	"ytbatch/internal/logging"
)

// BackendFactory creates the Backend for one invocation.
// Used to inject the token store and tracker during dispatch.
type BackendFactory func(cfg *config.Config) commands.Backend

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  BackendFactory
}

// NewDispatcher creates a new dispatcher with the given registry and backend factory.
func NewDispatcher(registry *commands.Registry, factory BackendFactory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// common holds the flags shared by every command.
type common struct {
	configDir string
	quiet     bool
	debug     bool
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> help
	if len(args) == 0 {
		args = []string{"help"}
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	if _, ok := d.registry.Find(cmdName); !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	code := exitcode.Success
	root := d.buildRoot(ctx, &code, out, errOut)
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	return code
}

func (d *Dispatcher) buildRoot(ctx context.Context, code *int, out, errOut io.Writer) *cobra.Command {
	var flags common

	root := &cobra.Command{
		Use:           config.AppName,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configDir, "config", "", "override config directory")
	pf.BoolVar(&flags.quiet, "quiet", false, "suppress informational output")
	pf.BoolVar(&flags.debug, "debug", false, "print debug logs to stderr")

	root.SetHelpFunc(func(c *cobra.Command, _ []string) {
		if cmd, ok := d.registry.Find(c.Name()); ok && c != root {
			fmt.Fprintf(out, "Usage:\n  %s\n\n%s\n", cmd.Usage(), cmd.Synopsis())
			if usage := c.LocalNonPersistentFlags().FlagUsages(); usage != "" {
				fmt.Fprintf(out, "\nFlags:\n%s", usage)
			}
			return
		}
		fmt.Fprintf(out, "Usage:\n  %s <command> [flags]\n", config.AppName)
	})

	for _, cmd := range d.registry.All() {
		c := d.cobraCommand(ctx, cmd, &flags, code, out, errOut)
		if cmd.Name() == "help" {
			root.SetHelpCommand(c)
			continue
		}
		root.AddCommand(c)
	}
	return root
}

func (d *Dispatcher) cobraCommand(ctx context.Context, cmd commands.Command, flags *common, code *int, out, errOut io.Writer) *cobra.Command {
	c := &cobra.Command{
		Use:     cmd.Name(),
		Aliases: cmd.Aliases(),
		Short:   cmd.Synopsis(),
		RunE: func(_ *cobra.Command, args []string) error {
			*code = d.dispatchCommand(ctx, cmd, flags, args, out, errOut)
			return nil
		},
	}

	// Register command-specific flags
	cmd.RegisterFlags(c.Flags())
	return c
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, flags *common, args []string, out, errOut io.Writer) int {
	logging.InitWriter(errOut, flags.debug)

	// Create config
	cfg, err := config.New(flags.configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = flags.quiet
	cfg.Debug = flags.debug

	if err := cfg.LoadSettings(); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.AuthError
	}

	// Check auth requirements
	if cmd.NeedsAuth() {
		if err := cfg.Settings.Validate(); err != nil {
			fmt.Fprintf(errOut, "error: %s\n", err)
			if !cfg.HasSettings() {
				fmt.Fprintf(errOut, "hint: run '%s init' and fill in %s\n", config.AppName, cfg.SettingsPath())
			}
			return exitcode.AuthError
		}
	}

	// Run command
	return cmd.Run(ctx, cfg, d.factory(cfg), args, out, errOut)
}
