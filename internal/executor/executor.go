// Package executor runs the guarded command for lockrun. Unlike a batch
// runner it leaves stdin/stdout/stderr attached to the parent process, so
// the wrapped command behaves as if invoked directly.
package executor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Result represents the result of a command execution.
type Result struct {
	ExitCode int
	Duration time.Duration
	Err      error
}

// Success returns true if the command executed successfully (exit code 0).
func (r *Result) Success() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Options contains execution options for a command.
type Options struct {
	Command string
	WorkDir string
	Env     map[string]string
	Timeout time.Duration
}

// Executor handles shell command execution with inherited stdio.
type Executor struct {
	shell string
}

// New creates a new Executor using $SHELL, falling back to /bin/sh.
func New() *Executor {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Executor{shell: shell}
}

// Execute runs a command with the given options. Cancelling ctx kills the
// command; opts.Timeout, when set, bounds the run independently of ctx.
func (e *Executor) Execute(ctx context.Context, opts Options) *Result {
	start := time.Now()
	result := &Result{}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.shell, "-c", opts.Command)

	if opts.WorkDir != "" {
		cmd.Dir = opts.WorkDir
	}

	cmd.Env = os.Environ()
	for k, v := range opts.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	// The command owns the terminal while it runs
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	result.Duration = time.Since(start)

	if err != nil {
		result.Err = err
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
	}

	return result
}
