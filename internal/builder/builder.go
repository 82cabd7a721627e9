package builder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pymesh/depbuild/internal/msg"
	"github.com/pymesh/depbuild/internal/registry"
)

// DefaultJobs is the parallelism passed to `cmake --build`
const DefaultJobs = 8

type Step string

const (
	StepPrepare   Step = "prepare"
	StepConfigure Step = "configure"
	StepCompile   Step = "compile"
	StepInstall   Step = "install"
	StepCleanup   Step = "cleanup"
)

// StepError is returned when one step of a package build fails. The build
// directory is left in place.
type StepError struct {
	Package string
	Step    Step
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Package, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type Options struct {
	// Cleanup removes the build directory after a successful build
	Cleanup bool
	// Jobs is the --parallel value, DefaultJobs when zero
	Jobs int
	// Generator is passed as cmake -G when not empty
	Generator string
	// CMake is the cmake binary, looked up when empty
	CMake string
}

type Builder struct {
	layout Layout
	runner Runner
	opts   Options

	Stdout io.Writer
	Stderr io.Writer
}

func New(layout Layout, runner Runner, opts Options) *Builder {
	if opts.Jobs <= 0 {
		opts.Jobs = DefaultJobs
	}
	if opts.CMake == "" {
		opts.CMake = findCMake()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Builder{
		layout: layout,
		runner: runner,
		opts:   opts,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

func (b *Builder) Layout() Layout { return b.layout }

// commands returns the configure, compile and install invocations for a build
func (b *Builder) commands(build registry.Build) []*Command {
	buildDir := b.layout.BuildDir(build.Source)
	jobs := strconv.Itoa(b.opts.Jobs)

	configure := []string{
		b.layout.SourceDir(build.Source),
		"-DBUILD_SHARED_LIBS=Off",
		"-DCMAKE_POSITION_INDEPENDENT_CODE=On",
	}
	if b.opts.Generator != "" {
		configure = append(configure, "-G", b.opts.Generator)
	}
	for _, def := range build.Defines {
		configure = append(configure, "-D"+def)
	}
	configure = append(configure, "-DCMAKE_INSTALL_PREFIX="+b.layout.InstallPrefix())

	return []*Command{
		{Step: StepConfigure, Path: b.opts.CMake, Args: configure, Dir: buildDir},
		{Step: StepCompile, Path: b.opts.CMake, Args: []string{"--build", buildDir, "--parallel", jobs}},
		{Step: StepInstall, Path: b.opts.CMake, Args: []string{"--build", buildDir, "--parallel", jobs, "--target", "install"}},
	}
}

// Build configures, compiles and installs one package, then removes its
// build directory if cleanup was requested. Steps run strictly in order and
// the first failure stops the build.
func (b *Builder) Build(ctx context.Context, build registry.Build) error {
	buildDir := b.layout.BuildDir(build.Source)
	msg.Step(b.Stdout, "Building", "%s (%s)", build.Name, b.layout.SourceDir(build.Source))

	if err := os.MkdirAll(buildDir, 0755); err != nil {
		return &StepError{Package: build.Name, Step: StepPrepare, Err: err}
	}

	for _, c := range b.commands(build) {
		if err := b.run(ctx, c); err != nil {
			return &StepError{Package: build.Name, Step: c.Step, Err: err}
		}
	}

	if b.opts.Cleanup {
		msg.Step(b.Stdout, "Removing", "%s", buildDir)
		if err := os.RemoveAll(buildDir); err != nil {
			return &StepError{Package: build.Name, Step: StepCleanup, Err: err}
		}
	}

	msg.Step(b.Stdout, "Finished", "%s", build.Name)
	return nil
}

func (b *Builder) run(ctx context.Context, c *Command) error {
	c.Stderr = b.Stderr
	if c.Step != StepConfigure {
		c.Stdout = b.Stdout
		return b.runner.Run(ctx, c)
	}

	// configure output is only shown when it fails
	fmt.Fprintln(b.Stdout, c.Path+" "+strings.Join(c.Args, " "))
	var out bytes.Buffer
	c.Stdout = &out
	err := b.runner.Run(ctx, c)
	if err != nil && out.Len() > 0 {
		out.WriteTo(&msg.IndentWriter{Indent: "    ", W: b.Stderr})
	}
	return err
}

// BuildAll builds each package in order and stops at the first failure
func (b *Builder) BuildAll(ctx context.Context, builds []registry.Build) error {
	for _, build := range builds {
		if err := b.Build(ctx, build); err != nil {
			return err
		}
	}
	return nil
}

// Dispatch plans pkg against reg and builds the result
func (b *Builder) Dispatch(ctx context.Context, reg *registry.Registry, pkg string, env registry.FlagEnv, lookup func(string) (string, bool)) error {
	builds, err := Plan(reg, pkg, env, lookup)
	if err != nil {
		return err
	}
	return b.BuildAll(ctx, builds)
}
