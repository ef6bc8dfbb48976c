package manifest

import "fmt"

// Oracle orders two version strings. Compare returns a negative value when
// a is older than b, zero when equal, positive when newer. All version
// comparisons in pacscout funnel through an Oracle so ordering semantics
// stay in one place.
type Oracle interface {
	Compare(a, b string) (int, error)
}

// Resolution is the reconciler's verdict for one package
type Resolution struct {
	Source          Source
	NewerVersion    *string
	UpdateAvailable bool
	Notes           string
}

// Reconcile combines optional repository and archive version info into one
// chosen source, target version, and update verdict.
//
// Precedence: a lone source wins outright; when both know the package the
// repository wins ties (it is authoritative and centrally signed), and an
// archive version strictly ahead of the chosen repository version is
// surfaced as an advisory note without changing the verdict. A package
// unknown to both sources is attributed to "local" when its origin tag says
// so, otherwise "unknown".
//
// An Oracle failure aborts reconciliation for this package only: the
// returned Resolution falls back to the no-info attribution and the error
// is handed to the caller for its error list.
func Reconcile(pkg InstalledPackage, repo, aur *VersionInfo, oracle Oracle) (Resolution, error) {
	fallback := Resolution{Source: SourceUnknown}
	if pkg.IsLocal() {
		fallback.Source = SourceLocal
	}

	switch {
	case repo != nil && aur == nil:
		return resolveAgainst(pkg, SourcePacman, repo.Version, "", oracle, fallback)

	case repo == nil && aur != nil:
		return resolveAgainst(pkg, SourceAUR, aur.Version, "", oracle, fallback)

	case repo != nil && aur != nil:
		cmp, err := oracle.Compare(repo.Version, aur.Version)
		if err != nil {
			return fallback, fmt.Errorf("comparing %s repo %q with aur %q: %w", pkg.Name, repo.Version, aur.Version, err)
		}
		if cmp >= 0 {
			return resolveAgainst(pkg, SourcePacman, repo.Version, "", oracle, fallback)
		}
		note := fmt.Sprintf("aur %s ahead of repo %s; repo preferred", aur.Version, repo.Version)
		return resolveAgainst(pkg, SourcePacman, repo.Version, note, oracle, fallback)

	default:
		return fallback, nil
	}
}

func resolveAgainst(pkg InstalledPackage, source Source, target, note string, oracle Oracle, fallback Resolution) (Resolution, error) {
	cmp, err := oracle.Compare(pkg.Version, target)
	if err != nil {
		return fallback, fmt.Errorf("comparing %s installed %q with %s %q: %w", pkg.Name, pkg.Version, source, target, err)
	}

	res := Resolution{Source: source, Notes: note}
	if cmp < 0 {
		v := target
		res.NewerVersion = &v
		res.UpdateAvailable = true
	}
	return res, nil
}

// Size estimate policy constants. Capacity gating depends on these staying
// exactly as they are.
const (
	// aurInstallFactor: archive packages typically compile to roughly
	// double their source archive.
	aurInstallFactor = 2
	// aurBuildFactor: compilation staging dominates temporary space for
	// archive builds.
	aurBuildFactor = 8
	// repoBuildNumerator/Denominator: binary repackaging and staging
	// overhead, 1.5x rounded up.
	repoBuildNumerator   = 3
	repoBuildDenominator = 2
)

// Estimates carries the derived per-package size figures. A nil field means
// no telemetry allowed an estimate.
type Estimates struct {
	DownloadSelected  *uint64
	InstalledSelected *uint64
	Install           *uint64
	Build             *uint64
	Transient         *uint64
}

// Estimate derives download, install, build, and transient byte figures for
// a package resolved to source, from whichever size fields the upstream
// VersionInfos populate. The chosen source's telemetry wins; the other
// source fills gaps.
func Estimate(source Source, repo, aur *VersionInfo) Estimates {
	chosen, other := repo, aur
	if source == SourceAUR {
		chosen, other = aur, repo
	}

	est := Estimates{
		DownloadSelected:  pickSize(chosen, other, func(v *VersionInfo) *uint64 { return v.DownloadSize }),
		InstalledSelected: pickSize(chosen, other, func(v *VersionInfo) *uint64 { return v.InstalledSize }),
	}

	switch {
	case est.InstalledSelected != nil:
		est.Install = copySize(est.InstalledSelected)
	case source == SourceAUR && est.DownloadSelected != nil:
		est.Install = sizeOf(*est.DownloadSelected * aurInstallFactor)
	case est.DownloadSelected != nil:
		est.Install = copySize(est.DownloadSelected)
	}

	switch {
	case source == SourcePacman && est.Install != nil:
		est.Build = sizeOf((*est.Install*repoBuildNumerator + repoBuildDenominator - 1) / repoBuildDenominator)
	case source == SourceAUR && est.DownloadSelected != nil:
		est.Build = sizeOf(*est.DownloadSelected * aurBuildFactor)
	}

	var total uint64
	for _, part := range []*uint64{est.DownloadSelected, est.Build, est.Install} {
		if part != nil {
			total += *part
		}
	}
	if total > 0 {
		est.Transient = &total
	}
	return est
}

func pickSize(chosen, other *VersionInfo, field func(*VersionInfo) *uint64) *uint64 {
	if chosen != nil {
		if v := field(chosen); v != nil {
			return copySize(v)
		}
	}
	if other != nil {
		if v := field(other); v != nil {
			return copySize(v)
		}
	}
	return nil
}

func copySize(v *uint64) *uint64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func sizeOf(v uint64) *uint64 {
	return &v
}
