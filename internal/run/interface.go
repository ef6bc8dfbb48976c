// Package run executes external tools and normalizes their failures into
// the shared error taxonomy. Every pacscout boundary that shells out
// (pacman, vercmp, flatpak, fwupdmgr) goes through a Runner so tests can
// substitute canned output.
package run

// Result captures one completed invocation. Stdout and Stderr are populated
// even when the tool exited non-zero; ExitCode is -1 when the tool could not
// be started at all.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner abstracts external tool execution
type Runner interface {
	// Run executes name with args and returns the captured result. The
	// error is non-nil when the tool is missing, cannot start, or exits
	// non-zero; the Result is still meaningful in the last case.
	Run(name string, args ...string) (Result, error)
	// LookPath reports the path of name, or an error when absent
	LookPath(name string) (string, error)
}
