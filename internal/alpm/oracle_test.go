package alpm

import (
	"errors"
	"testing"

	"github.com/pacscout/pacscout/internal/errdefs"
	"github.com/pacscout/pacscout/internal/run"
)

func TestOracleCompare(t *testing.T) {
	tests := []struct {
		stdout string
		want   int
	}{
		{"-1\n", -1},
		{"0\n", 0},
		{"1\n", 1},
		{"-3\n", -1}, // vercmp documents only the sign
		{"2\n", 1},
	}

	for _, tt := range tests {
		runner := &run.MockRunner{
			RunFunc: func(name string, args ...string) (run.Result, error) {
				return run.Result{Stdout: tt.stdout}, nil
			},
		}
		got, err := NewOracle(runner).Compare("1.0-1", "1.0-2")
		if err != nil {
			t.Errorf("Compare with %q: %v", tt.stdout, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Compare with %q = %d, want %d", tt.stdout, got, tt.want)
		}
	}
}

func TestOracleCompareArguments(t *testing.T) {
	runner := &run.MockRunner{
		RunFunc: func(name string, args ...string) (run.Result, error) {
			return run.Result{Stdout: "0"}, nil
		},
	}

	if _, err := NewOracle(runner).Compare("1:2.0-1", "2.0-2"); err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(runner.Calls) != 1 {
		t.Fatalf("calls = %d", len(runner.Calls))
	}
	call := runner.Calls[0]
	if call.Name != "vercmp" || len(call.Args) != 2 || call.Args[0] != "1:2.0-1" || call.Args[1] != "2.0-2" {
		t.Errorf("call = %+v", call)
	}
}

func TestOracleCompareGarbage(t *testing.T) {
	runner := &run.MockRunner{
		RunFunc: func(name string, args ...string) (run.Result, error) {
			return run.Result{Stdout: "not a number\n"}, nil
		},
	}

	_, err := NewOracle(runner).Compare("1", "2")
	if !errors.Is(err, errdefs.ErrSerialization) {
		t.Errorf("garbage stdout: %v, want serialization error", err)
	}
}

func TestOracleCompareMissingTool(t *testing.T) {
	runner := &run.MockRunner{
		RunFunc: func(name string, args ...string) (run.Result, error) {
			return run.Result{ExitCode: -1}, errdefs.CommandMissing(name)
		},
	}

	_, err := NewOracle(runner).Compare("1", "2")
	if !errors.Is(err, errdefs.ErrCommandMissing) {
		t.Errorf("missing vercmp: %v", err)
	}
}
