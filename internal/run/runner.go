package run

import (
	"bytes"
	"errors"
	"os/exec"

	"github.com/pacscout/pacscout/internal/errdefs"
)

// ExecRunner runs tools with os/exec
type ExecRunner struct{}

// NewExecRunner creates a Runner backed by os/exec
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes name with args, capturing stdout and stderr
func (r *ExecRunner) Run(name string, args ...string) (Result, error) {
	cmd := exec.Command(name, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	res := Result{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		ExitCode: 0,
	}

	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(err, exec.ErrNotFound):
		res.ExitCode = -1
		return res, errdefs.CommandMissing(name)
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, errdefs.CommandFailed(name, err, res.Stderr)
	default:
		res.ExitCode = -1
		return res, errdefs.Runtime("running %s: %v", name, err)
	}
}

// LookPath reports the path of name on PATH
func (r *ExecRunner) LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", errdefs.CommandMissing(name)
	}
	return path, nil
}

// Ensure ExecRunner implements Runner
var _ Runner = (*ExecRunner)(nil)
