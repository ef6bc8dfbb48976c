package errdefs

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "nil", err: nil, code: ExitOK},
		{name: "command missing", err: CommandMissing("vercmp"), code: ExitCommandMissing},
		{name: "command failed", err: CommandFailed("pacman", errors.New("exit status 1"), "error: target not found"), code: ExitCommandFailed},
		{name: "network", err: Network("GET %s: timeout", "https://example.invalid"), code: ExitNetwork},
		{name: "serialization", err: Serialization("vercmp printed %q", "abc"), code: ExitSerialization},
		{name: "filesystem", err: Filesystem("write manifest", errors.New("permission denied")), code: ExitFilesystem},
		{name: "config", err: Config("policy must be warn or enforce, got %q", "panic"), code: ExitConfig},
		{name: "capacity", err: Capacity("need ~3 GiB; only 1 GiB available"), code: ExitCapacity},
		{name: "runtime", err: Runtime("no usable candidate"), code: ExitRuntime},
		{name: "unclassified", err: errors.New("something else"), code: ExitRuntime},
		{name: "wrapped classified", err: fmt.Errorf("plan: %w", CommandMissing("flatpak")), code: ExitCommandMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.code {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.code)
			}
		})
	}
}

func TestCommandFailedCarriesStderr(t *testing.T) {
	err := CommandFailed("pacman", errors.New("exit status 1"), "  error: target not found: nope  \n")
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("expected ErrCommandFailed, got %v", err)
	}
	want := "command failed: pacman: exit status 1: error: target not found: nope"
	if err.Error() != want {
		t.Errorf("message %q, want %q", err.Error(), want)
	}
}

func TestCommandFailedWithoutStderr(t *testing.T) {
	err := CommandFailed("vercmp", errors.New("exit status 2"), "")
	want := "command failed: vercmp: exit status 2"
	if err.Error() != want {
		t.Errorf("message %q, want %q", err.Error(), want)
	}
}

func TestSentinelMatching(t *testing.T) {
	err := fmt.Errorf("aur query: %w", Network("status 502"))
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("wrapped network error did not match ErrNetwork")
	}
	if errors.Is(err, ErrSerialization) {
		t.Errorf("network error matched ErrSerialization")
	}
}
