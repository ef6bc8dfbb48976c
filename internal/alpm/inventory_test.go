package alpm

import (
	"errors"
	"testing"

	"github.com/pacscout/pacscout/internal/errdefs"
	"github.com/pacscout/pacscout/internal/run"
)

const sampleQi = `Name            : bash
Version         : 5.2.037-1
Description     : The GNU Bourne Again shell
Architecture    : x86_64
URL             : https://www.gnu.org/software/bash/
Licenses        : GPL-3.0-or-later
Groups          : None
Depends On      : readline  glibc  ncurses
Optional Deps   : bash-completion: for tab completion
Installed Size  : 9.06 MiB
Install Date    : Tue 14 Jan 2025 10:00:00 AM UTC
Install Reason  : Explicitly installed
Install Script  : No
Validated By    : Signature

Name            : paru
Version         : 2.0.4-1
Description     : AUR helper
Installed Size  : 18.50 MiB
Install Date    : Wed 15 Jan 2025 09:30:00 AM UTC
Validated By    : None

Name            : zlib
Version         : 1.3.1-2
Installed Size  : None
Validated By    : SHA-256 Sum
SHA-256 Sum     : 0123456789abcdeffedcba98765432100123456789abcdeffedcba9876543210
`

func qiRunner(qm string, qmErr error) *run.MockRunner {
	return &run.MockRunner{
		RunFunc: func(name string, args ...string) (run.Result, error) {
			if len(args) > 0 && args[0] == "-Qm" {
				if qmErr != nil {
					return run.Result{ExitCode: 1}, qmErr
				}
				return run.Result{Stdout: qm}, nil
			}
			return run.Result{Stdout: sampleQi}, nil
		},
	}
}

func TestCollectorList(t *testing.T) {
	c := NewCollector(qiRunner("paru 2.0.4-1\n", nil))

	pkgs, err := c.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pkgs) != 3 {
		t.Fatalf("packages = %d, want 3", len(pkgs))
	}

	bash := pkgs[0]
	if bash.Name != "bash" || bash.Version != "5.2.037-1" {
		t.Errorf("bash = %+v", bash)
	}
	if bash.InstalledSize == nil || *bash.InstalledSize != 9500099 {
		t.Errorf("bash installed size = %v", bash.InstalledSize)
	}
	if bash.InstallDate != "Tue 14 Jan 2025 10:00:00 AM UTC" {
		t.Errorf("bash install date = %q", bash.InstallDate)
	}
	if bash.ValidatedBy != "Signature" {
		t.Errorf("bash validated by = %q", bash.ValidatedBy)
	}
	if bash.IsLocal() {
		t.Error("bash attributed local")
	}

	paru := pkgs[1]
	if !paru.IsLocal() {
		t.Errorf("paru repository = %q, want local (in -Qm)", paru.Repository)
	}
	if paru.ValidatedBy != "" {
		t.Errorf("literal None survived: %q", paru.ValidatedBy)
	}

	zlib := pkgs[2]
	if zlib.InstalledSize != nil {
		t.Errorf("zlib size = %v, want absent for None", zlib.InstalledSize)
	}
	if zlib.SHA256 != "0123456789abcdeffedcba98765432100123456789abcdeffedcba9876543210" {
		t.Errorf("zlib hash = %q", zlib.SHA256)
	}
}

func TestCollectorListNoForeign(t *testing.T) {
	// pacman -Qm exits 1 with no output when nothing is foreign.
	qmErr := errdefs.CommandFailed("pacman", errors.New("exit status 1"), "")
	c := NewCollector(qiRunner("", qmErr))

	pkgs, err := c.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, pkg := range pkgs {
		if pkg.IsLocal() {
			t.Errorf("%s attributed local with empty foreign set", pkg.Name)
		}
	}
}

func TestCollectorListEmptyOutput(t *testing.T) {
	c := NewCollector(&run.MockRunner{
		RunFunc: func(name string, args ...string) (run.Result, error) {
			return run.Result{}, nil
		},
	})
	if _, err := c.List(); !errors.Is(err, errdefs.ErrSerialization) {
		t.Errorf("empty -Qi output: %v, want serialization error", err)
	}
}

func TestCollectorListMissingPacman(t *testing.T) {
	c := NewCollector(&run.MockRunner{
		RunFunc: func(name string, args ...string) (run.Result, error) {
			return run.Result{ExitCode: -1}, errdefs.CommandMissing(name)
		},
	})
	if _, err := c.List(); !errors.Is(err, errdefs.ErrCommandMissing) {
		t.Errorf("missing pacman: %v", err)
	}
}

func TestCollectorForeign(t *testing.T) {
	c := NewCollector(qiRunner("paru 2.0.4-1\nyay-bin 12.3.5-1\n", nil))

	pkgs, err := c.Foreign()
	if err != nil {
		t.Fatalf("Foreign: %v", err)
	}
	if len(pkgs) != 2 {
		t.Fatalf("foreign = %d, want 2", len(pkgs))
	}
	if pkgs[0].Name != "paru" || pkgs[0].Version != "2.0.4-1" || !pkgs[0].IsLocal() {
		t.Errorf("foreign[0] = %+v", pkgs[0])
	}
	if pkgs[1].Name != "yay-bin" || pkgs[1].Version != "12.3.5-1" {
		t.Errorf("foreign[1] = %+v", pkgs[1])
	}
}

func TestCollectorForeignRealFailure(t *testing.T) {
	qmErr := errdefs.CommandFailed("pacman", errors.New("exit status 1"), "error: could not open database")
	c := NewCollector(&run.MockRunner{
		RunFunc: func(name string, args ...string) (run.Result, error) {
			return run.Result{Stdout: "partial", ExitCode: 1}, qmErr
		},
	})
	// Non-empty stdout alongside the failure means the tolerance for the
	// no-foreign case must not swallow it.
	if _, err := c.Foreign(); err == nil {
		t.Error("expected database failure to surface")
	}
}
