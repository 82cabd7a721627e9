// depbuild [--cleanup] <package>
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"

	"github.com/pymesh/depbuild/internal/builder"
	"github.com/pymesh/depbuild/internal/msg"
	"github.com/pymesh/depbuild/internal/registry"
	"github.com/spf13/cobra"
)

// swapped out by tests
var (
	newRunner = func() builder.Runner { return builder.ExecRunner{} }
	lookupEnv = os.LookupEnv
)

// cmake -G value for each --generator choice
var generators = map[string]string{
	"default": "",
	"ninja":   "Ninja",
	"make":    "Unix Makefiles",
}

// usageError is a malformed invocation, reported before anything runs
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

type rootFlags struct {
	root      string
	cleanup   bool
	jobs      int
	generator *EnumValue
	pkg       *EnumValue
}

// layout resolves --root, defaulting to the parent of the executable's directory
func (f *rootFlags) layout() (builder.Layout, error) {
	root := f.root
	if root == "" {
		var err error
		if root, err = builder.DefaultRoot(); err != nil {
			return builder.Layout{}, fmt.Errorf("could not locate the PyMesh root, pass --root: %w", err)
		}
	}
	return builder.NewLayout(root)
}

func doBuild(cmd *cobra.Command, flags *rootFlags) error {
	if flags.jobs < 1 {
		return &usageError{fmt.Errorf("--jobs must be at least 1, got %d", flags.jobs)}
	}
	layout, err := flags.layout()
	if err != nil {
		return err
	}

	b := builder.New(layout, newRunner(), builder.Options{
		Cleanup:   flags.cleanup,
		Jobs:      flags.jobs,
		Generator: generators[flags.generator.Value()],
	})
	b.Stdout = cmd.OutOrStdout()
	b.Stderr = cmd.ErrOrStderr()

	env := registry.NewFlagEnv(runtime.GOOS, runtime.GOARCH)
	return b.Dispatch(cmd.Context(), registry.Default(), flags.pkg.Value(), env, lookupEnv)
}

func newRootCmd() *cobra.Command {
	reg := registry.Default()
	flags := &rootFlags{
		generator: NewEnumValue("default", []EnumChoice{
			{Name: "default", Help: "Let CMake pick the generator"},
			{Name: "ninja", Help: "Ninja"},
			{Name: "make", Help: "Unix Makefiles"},
		}),
		pkg: NewEnumValue("", EnumChoices(reg.Choices()...)),
	}

	rootCmd := &cobra.Command{
		Use:   "depbuild [flags] <package>",
		Short: "Build and install third party dependencies for PyMesh",
		Long: `Configure, compile and install a third party dependency of PyMesh with CMake.

<package> is "all" or one of the registered packages, see "depbuild list".
"all" builds every package in registry order and stops at the first failure.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				return &usageError{fmt.Errorf("%w, package must be one of: %s", err, flags.pkg.HelpString())}
			}
			if err := flags.pkg.Set(args[0]); err != nil {
				return &usageError{fmt.Errorf("invalid package %q: %w", args[0], err)}
			}
			return nil
		},
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return flags.pkg.CompletionFunc()(cmd, args, toComplete)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return doBuild(cmd, flags)
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})

	rootCmd.PersistentFlags().StringVar(&flags.root, "root", "", "PyMesh checkout root (default: parent of the executable's directory)")
	rootCmd.Flags().BoolVar(&flags.cleanup, "cleanup", true, "Remove the build directory after a successful build (--cleanup=false keeps it)")
	rootCmd.Flags().IntVarP(&flags.jobs, "jobs", "j", builder.DefaultJobs, "Parallel compile jobs passed to cmake --build")
	rootCmd.Flags().VarP(flags.generator, "generator", "G", "CMake generator, one of "+flags.generator.HelpString())
	rootCmd.RegisterFlagCompletionFunc("generator", flags.generator.CompletionFunc())

	rootCmd.AddCommand(newListCmd(flags))
	rootCmd.AddCommand(newCleanCmd(flags))
	return rootCmd
}

// exitCode maps an error to the process exit status: 2 for usage errors,
// the tool's own status when a build step exited non-zero, 1 otherwise
func exitCode(err error) int {
	var uerr *usageError
	if errors.As(err, &uerr) {
		return 2
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}
	return 1
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd, err := newRootCmd().ExecuteContextC(ctx)
	if err == nil {
		return
	}

	var uerr *usageError
	if errors.As(err, &uerr) {
		fmt.Fprint(os.Stderr, cmd.UsageString())
	}
	stop()
	msg.FatalCode(exitCode(err), "%v", err)
}
