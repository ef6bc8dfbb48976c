package manifest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// numericOracle orders versions as plain integers
type numericOracle struct{}

func (numericOracle) Compare(a, b string) (int, error) {
	ai, err := strconv.Atoi(a)
	if err != nil {
		return 0, fmt.Errorf("bad version %q", a)
	}
	bi, err := strconv.Atoi(b)
	if err != nil {
		return 0, fmt.Errorf("bad version %q", b)
	}
	switch {
	case ai < bi:
		return -1, nil
	case ai > bi:
		return 1, nil
	default:
		return 0, nil
	}
}

func u64(v uint64) *uint64 { return &v }

func TestReconcileRepoOnlyProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("update_available iff installed < repo", prop.ForAll(
		func(installed, repo uint8) bool {
			pkg := InstalledPackage{Name: "p", Version: strconv.Itoa(int(installed))}
			info := VersionInfo{Version: strconv.Itoa(int(repo))}

			res, err := Reconcile(pkg, &info, nil, numericOracle{})
			if err != nil {
				return false
			}
			if res.Source != SourcePacman {
				return false
			}
			want := installed < repo
			if res.UpdateAvailable != want {
				return false
			}
			if want {
				return res.NewerVersion != nil && *res.NewerVersion == info.Version
			}
			return res.NewerVersion == nil
		},
		gen.UInt8(),
		gen.UInt8(),
	))

	properties.Property("archive-only packages resolve to aur with the same rule", prop.ForAll(
		func(installed, archive uint8) bool {
			pkg := InstalledPackage{Name: "p", Version: strconv.Itoa(int(installed))}
			info := VersionInfo{Version: strconv.Itoa(int(archive))}

			res, err := Reconcile(pkg, nil, &info, numericOracle{})
			if err != nil {
				return false
			}
			return res.Source == SourceAUR && res.UpdateAvailable == (installed < archive)
		},
		gen.UInt8(),
		gen.UInt8(),
	))

	properties.TestingRun(t)
}

func TestReconcileTieBreak(t *testing.T) {
	// Equal versions on both sources must resolve to the repository.
	pkg := InstalledPackage{Name: "tzdata", Version: "5"}
	repo := VersionInfo{Version: "7"}
	aur := VersionInfo{Version: "7"}

	res, err := Reconcile(pkg, &repo, &aur, numericOracle{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Source != SourcePacman {
		t.Errorf("source = %s, want pacman on tie", res.Source)
	}
	if !res.UpdateAvailable {
		t.Errorf("expected update available (5 < 7)")
	}
	if res.Notes != "" {
		t.Errorf("tie should carry no note, got %q", res.Notes)
	}
}

func TestReconcileArchiveAheadNote(t *testing.T) {
	pkg := InstalledPackage{Name: "linux", Version: "6"}
	repo := VersionInfo{Version: "6"}
	aur := VersionInfo{Version: "8"}

	res, err := Reconcile(pkg, &repo, &aur, numericOracle{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Source != SourcePacman {
		t.Errorf("source = %s, want pacman despite archive ahead", res.Source)
	}
	if res.UpdateAvailable {
		t.Errorf("verdict must be judged against repo version (6 == 6)")
	}
	if !strings.Contains(res.Notes, "aur 8 ahead of repo 6") {
		t.Errorf("note = %q", res.Notes)
	}
}

func TestReconcileInstalledAheadOfRepo(t *testing.T) {
	// Installed 3 is already past repo 2: no downgrade is suggested, and the
	// archive being ahead still only earns a note.
	pkg := InstalledPackage{Name: "paru", Version: "3"}
	repo := VersionInfo{Version: "2"}
	aur := VersionInfo{Version: "4"}

	res, err := Reconcile(pkg, &repo, &aur, numericOracle{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Source != SourcePacman {
		t.Errorf("source = %s, want pacman", res.Source)
	}
	if res.UpdateAvailable || res.NewerVersion != nil {
		t.Errorf("no update should be suggested, got %+v", res)
	}
	if !strings.Contains(res.Notes, "aur 4 ahead of repo 2") {
		t.Errorf("note = %q", res.Notes)
	}
}

func TestReconcileNoInfo(t *testing.T) {
	tests := []struct {
		name       string
		repository string
		want       Source
	}{
		{name: "foreign package", repository: "local", want: SourceLocal},
		{name: "repo tag but no catalog info", repository: "core", want: SourceUnknown},
		{name: "no origin at all", repository: "", want: SourceUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := InstalledPackage{Name: "p", Version: "1", Repository: tt.repository}
			res, err := Reconcile(pkg, nil, nil, numericOracle{})
			if err != nil {
				t.Fatalf("Reconcile: %v", err)
			}
			if res.Source != tt.want {
				t.Errorf("source = %s, want %s", res.Source, tt.want)
			}
			if res.UpdateAvailable {
				t.Errorf("no info must mean no update")
			}
		})
	}
}

func TestReconcileOracleFailure(t *testing.T) {
	pkg := InstalledPackage{Name: "broken", Version: "not-a-number"}
	repo := VersionInfo{Version: "2"}

	res, err := Reconcile(pkg, &repo, nil, numericOracle{})
	if err == nil {
		t.Fatal("expected oracle failure to surface")
	}
	if res.Source != SourceUnknown {
		t.Errorf("source = %s, want unknown after oracle failure", res.Source)
	}
	if res.UpdateAvailable {
		t.Errorf("oracle failure must not claim an update")
	}

	// A failing local package still falls back to local attribution.
	pkg.Repository = "local"
	res, err = Reconcile(pkg, &repo, nil, numericOracle{})
	if err == nil {
		t.Fatal("expected oracle failure to surface")
	}
	if res.Source != SourceLocal {
		t.Errorf("source = %s, want local fallback", res.Source)
	}
}

type failingOracle struct{ err error }

func (f failingOracle) Compare(a, b string) (int, error) { return 0, f.err }

func TestReconcileWrapsOracleError(t *testing.T) {
	sentinel := errors.New("vercmp exploded")
	pkg := InstalledPackage{Name: "p", Version: "1"}
	repo := VersionInfo{Version: "2"}

	_, err := Reconcile(pkg, &repo, nil, failingOracle{err: sentinel})
	if !errors.Is(err, sentinel) {
		t.Errorf("oracle error not wrapped: %v", err)
	}
}

func TestEstimateArchiveHeuristics(t *testing.T) {
	// download=1000 with no installed-size telemetry
	aur := VersionInfo{Version: "2", DownloadSize: u64(1000)}

	est := Estimate(SourceAUR, nil, &aur)
	if est.Install == nil || *est.Install != 2000 {
		t.Errorf("install estimate = %v, want 2000", est.Install)
	}
	if est.Build == nil || *est.Build != 8000 {
		t.Errorf("build estimate = %v, want 8000", est.Build)
	}
	if est.Transient == nil || *est.Transient != 11000 {
		t.Errorf("transient estimate = %v, want 11000", est.Transient)
	}
}

func TestEstimateRepoHeuristics(t *testing.T) {
	tests := []struct {
		name      string
		download  *uint64
		installed *uint64
		install   *uint64
		build     *uint64
		transient *uint64
	}{
		{
			name:      "both sizes advertised",
			download:  u64(1000),
			installed: u64(4000),
			install:   u64(4000),
			build:     u64(6000),
			transient: u64(11000),
		},
		{
			name:      "odd install rounds build up",
			download:  u64(0),
			installed: u64(21),
			install:   u64(21),
			build:     u64(32), // ceil(21 * 1.5)
			transient: u64(53),
		},
		{
			name:      "download only falls back to download as install",
			download:  u64(1000),
			installed: nil,
			install:   u64(1000),
			build:     u64(1500),
			transient: u64(3500),
		},
		{
			name:      "no telemetry at all",
			download:  nil,
			installed: nil,
			install:   nil,
			build:     nil,
			transient: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := VersionInfo{Version: "2", DownloadSize: tt.download, InstalledSize: tt.installed}
			est := Estimate(SourcePacman, &repo, nil)

			checkSize := func(label string, got, want *uint64) {
				t.Helper()
				switch {
				case want == nil && got != nil:
					t.Errorf("%s = %d, want absent", label, *got)
				case want != nil && got == nil:
					t.Errorf("%s absent, want %d", label, *want)
				case want != nil && got != nil && *want != *got:
					t.Errorf("%s = %d, want %d", label, *got, *want)
				}
			}
			checkSize("install", est.Install, tt.install)
			checkSize("build", est.Build, tt.build)
			checkSize("transient", est.Transient, tt.transient)
		})
	}
}

func TestEstimateFallsBackToOtherSource(t *testing.T) {
	// An aur-resolved package can still borrow the repo's telemetry.
	repo := VersionInfo{Version: "1", DownloadSize: u64(500), InstalledSize: u64(900)}
	aur := VersionInfo{Version: "2"}

	est := Estimate(SourceAUR, &repo, &aur)
	if est.DownloadSelected == nil || *est.DownloadSelected != 500 {
		t.Errorf("download selected = %v, want 500 from repo fallback", est.DownloadSelected)
	}
	if est.Install == nil || *est.Install != 900 {
		t.Errorf("install = %v, want 900 (installed size known)", est.Install)
	}
	if est.Build == nil || *est.Build != 4000 {
		t.Errorf("build = %v, want 8x download = 4000", est.Build)
	}
}

func TestEstimateLocalAndUnknownHaveNoBuild(t *testing.T) {
	for _, source := range []Source{SourceLocal, SourceUnknown} {
		est := Estimate(source, nil, nil)
		if est.Build != nil || est.Install != nil || est.Transient != nil {
			t.Errorf("%s: expected no estimates, got %+v", source, est)
		}
	}
}

func TestEstimateTransientAbsentWhenAllZero(t *testing.T) {
	repo := VersionInfo{Version: "1", DownloadSize: u64(0), InstalledSize: u64(0)}
	est := Estimate(SourcePacman, &repo, nil)
	if est.Transient != nil {
		t.Errorf("transient = %d, want absent when all parts are zero", *est.Transient)
	}
}
