// Package exec provides an abstraction around external service-manager
// commands for easier testing.
package exec

import (
	"bytes"
	"context"
	"os/exec"
)

// Result is the captured outcome of one external command.
type Result struct {
	Code   int // -1 if the command could not be started
	Stdout string
	Stderr string
	Error  error
}

// Runner runs an external command and captures its output. Implementations
// must be safe to call sequentially within one tick; no internal retry is
// performed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) Result
}

type systemRunner struct{}

// NewSystemRunner creates a Runner backed by the operating system.
func NewSystemRunner() Runner {
	return systemRunner{}
}

func (systemRunner) Run(ctx context.Context, name string, args ...string) Result {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := Result{
		Code:   0,
		Stdout: stdout.String(),
		Stderr: stderr.String(),
		Error:  err,
	}

	if err != nil {
		res.Code = -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.Code = exitErr.ExitCode()
		}
	}

	return res
}
