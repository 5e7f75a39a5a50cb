// Package runner invokes external transcoding processes and captures their
// exit status and output streams.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Command describes one external process invocation. For chained
// invocations, each command's declared output path is the next command's
// input path; the runner itself does not interpret the arguments.
type Command struct {
	Path string
	Args []string
	Dir  string
}

// Result holds the outcome of a process invocation. Both streams are
// captured fully for diagnostics; stdout is never interpreted beyond
// logging.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// ExitError is returned when a process exits non-zero.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("process exited with code %d: %s", e.Code, e.Stderr)
}

// Exec runs commands on the local machine.
type Exec struct{}

// NewExec creates a process runner.
func NewExec() *Exec {
	return &Exec{}
}

// Run executes a single command, waiting for completion. Cancelling the
// context terminates the process.
func (e *Exec) Run(ctx context.Context, cmd Command) (Result, error) {
	proc := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	proc.Dir = cmd.Dir

	var stdout, stderr bytes.Buffer
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	err := proc.Run()
	result := Result{
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	if proc.ProcessState != nil {
		result.ExitCode = proc.ProcessState.ExitCode()
	}

	if err != nil {
		if ctx.Err() != nil {
			return result, fmt.Errorf("process cancelled: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return result, &ExitError{Code: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return result, fmt.Errorf("failed to run %s: %w", cmd.Path, err)
	}

	return result, nil
}

// RunChain executes commands sequentially, stopping at the first failure.
// Results for completed invocations are returned even on failure.
func (e *Exec) RunChain(ctx context.Context, cmds []Command) ([]Result, error) {
	results := make([]Result, 0, len(cmds))

	for i, cmd := range cmds {
		result, err := e.Run(ctx, cmd)
		results = append(results, result)
		if err != nil {
			return results, fmt.Errorf("chain stage %d failed: %w", i, err)
		}
	}

	return results, nil
}
