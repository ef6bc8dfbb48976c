// Package errdefs defines the error taxonomy shared by all pacscout
// components, along with the process exit code each class maps to.
//
// Failures during reconciliation and plan aggregation are recovered locally
// and collected into error lists; only failures that prevent producing any
// usable document should reach the caller as one of these classes.
package errdefs

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for each failure class. Wrap them with fmt.Errorf("%w: ...")
// so callers can match with errors.Is.
var (
	// ErrCommandMissing indicates an external tool is not installed.
	ErrCommandMissing = errors.New("command not found")
	// ErrCommandFailed indicates an external tool ran but exited non-zero.
	ErrCommandFailed = errors.New("command failed")
	// ErrNetwork indicates an upstream API was unreachable or returned non-2xx.
	ErrNetwork = errors.New("network error")
	// ErrSerialization indicates malformed JSON or text from an external source.
	ErrSerialization = errors.New("malformed data")
	// ErrFilesystem indicates I/O failure on manifest, plan, log, or history paths.
	ErrFilesystem = errors.New("filesystem error")
	// ErrConfig indicates invalid or unsafe configuration.
	ErrConfig = errors.New("invalid configuration")
	// ErrCapacity indicates the disk capacity gate blocked the run.
	ErrCapacity = errors.New("insufficient disk space")
	// ErrRuntime is the catch-all for failures outside the other classes.
	ErrRuntime = errors.New("runtime error")
)

// Exit codes per failure class. Zero is success; strict-mode error
// accumulation exits with the Runtime code.
const (
	ExitOK             = 0
	ExitRuntime        = 1
	ExitConfig         = 2
	ExitCommandMissing = 3
	ExitCommandFailed  = 4
	ExitNetwork        = 5
	ExitSerialization  = 6
	ExitFilesystem     = 7
	ExitCapacity       = 8
)

// CommandMissing reports that tool could not be located on PATH.
func CommandMissing(tool string) error {
	return fmt.Errorf("%w: %s", ErrCommandMissing, tool)
}

// CommandFailed reports a non-zero exit from tool, attaching trimmed stderr
// when the tool produced any.
func CommandFailed(tool string, cause error, stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if stderr != "" {
		return fmt.Errorf("%w: %s: %v: %s", ErrCommandFailed, tool, cause, stderr)
	}
	return fmt.Errorf("%w: %s: %v", ErrCommandFailed, tool, cause)
}

// Network reports an upstream communication failure.
func Network(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNetwork, fmt.Sprintf(format, args...))
}

// Serialization reports unparseable output from an external source.
func Serialization(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrSerialization, fmt.Sprintf(format, args...))
}

// Filesystem wraps an I/O failure on one of the tool's own paths.
func Filesystem(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrFilesystem, op, err)
}

// Config reports invalid or unsafe configuration.
func Config(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// Capacity reports a blocking disk space shortfall.
func Capacity(msg string) error {
	return fmt.Errorf("%w: %s", ErrCapacity, msg)
}

// Runtime reports a failure outside the other classes.
func Runtime(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrRuntime, fmt.Sprintf(format, args...))
}

// ExitCode maps err to its process exit code. Unclassified errors map to
// ExitRuntime; nil maps to ExitOK.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrCapacity):
		return ExitCapacity
	case errors.Is(err, ErrConfig):
		return ExitConfig
	case errors.Is(err, ErrCommandMissing):
		return ExitCommandMissing
	case errors.Is(err, ErrCommandFailed):
		return ExitCommandFailed
	case errors.Is(err, ErrNetwork):
		return ExitNetwork
	case errors.Is(err, ErrSerialization):
		return ExitSerialization
	case errors.Is(err, ErrFilesystem):
		return ExitFilesystem
	default:
		return ExitRuntime
	}
}
