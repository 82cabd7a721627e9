package builder

import (
	"context"
	"io"
	"os"
	"os/exec"
)

// findCMake returns $CMAKE if set, otherwise cmake from PATH
func findCMake() string {
	if cmake := os.Getenv("CMAKE"); cmake != "" {
		return cmake
	}
	if path, err := exec.LookPath("cmake"); err == nil {
		return path
	}
	return "cmake"
}

// Command is a single external tool invocation
type Command struct {
	Step   Step
	Path   string
	Args   []string
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// Runner runs commands to completion
type Runner interface {
	Run(ctx context.Context, c *Command) error
}

// ExecRunner runs commands as subprocesses
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c *Command) error {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	return cmd.Run()
}
