package tools

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// RunResult is the captured outcome of one process invocation.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// Runner invokes external processes. Dir may be empty.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) RunResult
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir string, name string, args ...string) RunResult {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := RunResult{Stdout: stdout.String(), Stderr: stderr.String(), Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	} else if err != nil {
		res.ExitCode = -1
	}
	return res
}

// commandError converts a failed RunResult into an ExternalCommandFailure.
func commandError(name string, res RunResult) error {
	if res.Err == nil {
		return nil
	}
	e := wrapError(ReasonCommand, res.Err, "run %s (exit %d)", name, res.ExitCode)
	e.Stderr = strings.TrimSpace(res.Stderr)
	return e
}
