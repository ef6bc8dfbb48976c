package manifest

import (
	"sort"
	"time"
)

// BuildInput collects everything the builder aggregates. RepoVersions and
// AURVersions are keyed by package name; absent keys mean the source does
// not know the package.
type BuildInput struct {
	Packages     []InstalledPackage
	RepoVersions map[string]VersionInfo
	AURVersions  map[string]VersionInfo
	MinFreeBytes uint64
	GeneratedBy  string
	Now          time.Time
}

// Build reconciles every installed package and aggregates the entries into
// one document. Packages are processed in lexicographic name order so that
// identical inputs always produce identical documents (generated_at aside).
// Per-package reconciliation failures become error list entries and never
// abort the build.
func Build(in BuildInput, oracle Oracle) (*Document, []error) {
	pkgs := make([]InstalledPackage, len(in.Packages))
	copy(pkgs, in.Packages)
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	doc := &Document{
		Metadata: Metadata{
			GeneratedAt:   now.UTC().Format(time.RFC3339),
			GeneratedBy:   in.GeneratedBy,
			TotalPackages: len(pkgs),
			MinFreeBytes:  in.MinFreeBytes,
		},
		Packages: make(map[string]Entry, len(pkgs)),
	}

	var errs []error
	grouped := map[Source][]string{}

	for _, pkg := range pkgs {
		var repo, aur *VersionInfo
		if vi, ok := in.RepoVersions[pkg.Name]; ok {
			repo = &vi
		}
		if vi, ok := in.AURVersions[pkg.Name]; ok {
			aur = &vi
		}

		res, err := Reconcile(pkg, repo, aur, oracle)
		if err != nil {
			errs = append(errs, err)
		}
		est := Estimate(res.Source, repo, aur)

		entry := Entry{
			InstalledVersion:      pkg.Version,
			Source:                res.Source,
			NewerVersion:          res.NewerVersion,
			UpdateAvailable:       res.UpdateAvailable,
			Notes:                 res.Notes,
			DownloadSizeSelected:  est.DownloadSelected,
			InstalledSizeSelected: est.InstalledSelected,
			InstalledSizeBytes:    copySize(pkg.InstalledSize),
			InstallDate:           pkg.InstallDate,
			ValidatedBy:           pkg.ValidatedBy,
			SHA256Short:           TruncateHash(pkg.SHA256),
			InstallSizeEstimate:   est.Install,
			BuildSizeEstimate:     est.Build,
			TransientSizeEstimate: est.Transient,
		}
		if repo != nil {
			v := repo.Version
			entry.RepoVersion = &v
			entry.DownloadSizeRepo = copySize(repo.DownloadSize)
			entry.InstalledSizeRepo = copySize(repo.InstalledSize)
		}
		if aur != nil {
			v := aur.Version
			entry.AURVersion = &v
		}

		doc.Packages[pkg.Name] = entry
		grouped[res.Source] = append(grouped[res.Source], pkg.Name)

		switch res.Source {
		case SourcePacman:
			doc.Metadata.PacmanPackages++
		case SourceAUR:
			doc.Metadata.AURPackages++
		case SourceLocal:
			doc.Metadata.LocalPackages++
		default:
			doc.Metadata.UnknownPackages++
		}

		if res.UpdateAvailable {
			doc.Metadata.UpdatesAvailable++
			doc.Metadata.DownloadSizeTotal += sizeOrZero(est.DownloadSelected)
			doc.Metadata.BuildSizeTotal += sizeOrZero(est.Build)
			doc.Metadata.InstallSizeTotal += sizeOrZero(est.Install)
			doc.Metadata.TransientSizeTotal += sizeOrZero(est.Transient)
		}
	}

	doc.Metadata.RequiredSpaceTotal = doc.Metadata.TransientSizeTotal + in.MinFreeBytes

	for source, names := range grouped {
		doc.PackagesBySource = append(doc.PackagesBySource, SourceGroup{
			Source:   source,
			Count:    len(names),
			Packages: names, // already lexicographic: packages were walked in name order
		})
	}
	sort.Slice(doc.PackagesBySource, func(i, j int) bool {
		a, b := doc.PackagesBySource[i], doc.PackagesBySource[j]
		if a.Count != b.Count {
			return a.Count < b.Count
		}
		return a.Source < b.Source
	})

	return doc, errs
}

func sizeOrZero(v *uint64) uint64 {
	if v == nil {
		return 0
	}
	return *v
}
