// Package cli provides the utrun command-line interface.
package cli

import (
	"context"
	stderrors "errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AndreyAkinshin/utrun/internal/config"
	runerrors "github.com/AndreyAkinshin/utrun/internal/errors"
	"github.com/AndreyAkinshin/utrun/internal/output"
	"github.com/AndreyAkinshin/utrun/internal/process"
)

// Version is set at build time.
var Version = "dev"

// GlobalOptions holds flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
}

// app carries the collaborators of one CLI invocation.
type app struct {
	out    *output.Writer
	runner process.Runner // nil spawns real processes
	opts   GlobalOptions
}

// Run executes the CLI with the given arguments and returns an exit code.
// SIGINT and SIGTERM cancel the running suite.
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return (&app{out: output.New()}).execute(ctx, args)
}

func (a *app) execute(ctx context.Context, args []string) int {
	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetOut(a.out.Out())
	root.SetErr(a.out.Err())

	err := root.ExecuteContext(ctx)
	if err == nil {
		return runerrors.ExitSuccess
	}
	if !stderrors.Is(err, errReported) {
		a.out.ErrorPrefix("%v", err)
	}
	return runerrors.GetExitCode(err)
}

// errReported marks failures whose diagnostics were already printed.
var errReported = stderrors.New("reported")

func (a *app) newRootCmd() *cobra.Command {
	f := &runFlags{}
	root := &cobra.Command{
		Use:   "utrun",
		Short: "Build, run and measure native unit test suites",
		Long: `utrun configures and builds the unit test suites with cmake and make,
runs them (optionally under valgrind), collects lcov coverage and compares
it against a previous run.

Without a subcommand utrun performs a full run.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return runerrors.Configf("unknown command %q for %q", args[0], cmd.CommandPath())
			}
			return nil
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.out.SetQuiet(a.opts.Quiet)
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return f.validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPipeline(cmd, f)
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &runerrors.RunError{Kind: runerrors.KindConfig, Message: err.Error(), Cause: err}
	})
	root.SetVersionTemplate("utrun {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&a.opts.ConfigPath, "config", "", "path to "+config.FileName+" (default: discovered from the working directory)")
	pf.BoolVarP(&a.opts.Verbose, "verbose", "v", false, "log debug details")
	pf.BoolVarP(&a.opts.Quiet, "quiet", "q", false, "suppress command echo and section headers")

	f.register(root.Flags())

	root.AddCommand(
		a.newSuitesCmd(),
		a.newCoverageCmd(),
		a.newMemcheckCmd(),
		a.newTestSummaryCmd(),
		a.newVersionCmd(),
	)
	return root
}

// usageArgs turns positional argument errors into configuration errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return runerrors.Config(err.Error())
		}
		return nil
	}
}

// loadConfig loads the configuration file and prints its warnings.
func (a *app) loadConfig() (*config.File, error) {
	cfg, warnings, err := config.LoadDiscovered(a.opts.ConfigPath)
	for _, w := range warnings {
		a.out.Warning("%s", w)
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the utrun version",
		Args:  usageArgs(cobra.NoArgs),
		Run: func(cmd *cobra.Command, args []string) {
			a.out.Println("utrun %s", Version)
		},
	}
}
