package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pacscout/pacscout/internal/alpm"
	"github.com/pacscout/pacscout/internal/aur"
	"github.com/pacscout/pacscout/internal/config"
	"github.com/pacscout/pacscout/internal/errdefs"
	"github.com/pacscout/pacscout/internal/history"
	"github.com/pacscout/pacscout/internal/logging"
	"github.com/pacscout/pacscout/internal/manifest"
	"github.com/pacscout/pacscout/internal/output"
	"github.com/pacscout/pacscout/internal/run"
	"github.com/pacscout/pacscout/internal/space"
	"github.com/pacscout/pacscout/internal/version"
)

var (
	// manifestOutput overrides the configured manifest path
	manifestOutput string
	// manifestPrint writes the manifest JSON to stdout
	manifestPrint bool
	// manifestDryRun skips the file write and the history row
	manifestDryRun bool
	// manifestStrict turns accumulated errors into a non-zero exit
	manifestStrict bool
	// manifestSkipAUR restricts reconciliation to the sync repositories
	manifestSkipAUR bool
)

var manifestCmd = &cobra.Command{
	Use:   "manifest [names...]",
	Short: "Build and write the software inventory manifest",
	Long: `Reconcile the installed package inventory against the sync repositories
and the AUR into one manifest document with per-package source attribution
and size estimates. With names, only those packages are included.

Examples:
  pacscout manifest                 Snapshot the full inventory
  pacscout manifest bash linux-lts  Snapshot two packages only
  pacscout manifest --print         Also dump the JSON to stdout
  pacscout manifest --dry-run       Build without writing anything`,
	Run: runManifest,
}

func init() {
	manifestCmd.Flags().StringVarP(&manifestOutput, "output", "o", "", "Write the manifest to this path")
	manifestCmd.Flags().BoolVar(&manifestPrint, "print", false, "Print the manifest JSON to stdout")
	manifestCmd.Flags().BoolVar(&manifestDryRun, "dry-run", false, "Build the manifest but write nothing")
	manifestCmd.Flags().BoolVar(&manifestStrict, "strict", false, "Exit non-zero when any source reported an error")
	manifestCmd.Flags().BoolVar(&manifestSkipAUR, "skip-aur", false, "Skip the AUR and reconcile against repositories only")

	rootCmd.AddCommand(manifestCmd)
}

func runManifest(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	startRunLog(cfg)

	runner := run.NewExecRunner()
	log := logging.WithCode("MANIFEST")

	installed, err := alpm.NewCollector(runner).List()
	if err != nil {
		fatal(err)
	}
	installed, err = restrictToNames(installed, args)
	if err != nil {
		fatal(err)
	}

	var runErrors []error

	in := manifest.BuildInput{
		Packages:     installed,
		RepoVersions: map[string]manifest.VersionInfo{},
		AURVersions:  map[string]manifest.VersionInfo{},
		MinFreeBytes: cfg.MinFreeBytes(),
		GeneratedBy:  version.Stamp(),
	}

	if cfg.Sources.Pacman {
		var repoNames []string
		for _, pkg := range installed {
			if !pkg.IsLocal() {
				repoNames = append(repoNames, pkg.Name)
			}
		}
		repo, err := alpm.NewCatalog(runner).Query(repoNames)
		if err != nil {
			logging.WithCode("PACMAN").Errorf("querying sync database: %v", err)
			runErrors = append(runErrors, err)
		} else {
			in.RepoVersions = repo
		}
	}

	if cfg.Sources.AUR && !manifestSkipAUR {
		var foreignNames []string
		for _, pkg := range installed {
			if pkg.IsLocal() {
				foreignNames = append(foreignNames, pkg.Name)
			}
		}
		if len(foreignNames) > 0 {
			client, err := aur.NewClient(
				aur.WithBaseURL(cfg.AUR.BaseURL),
				aur.WithMaxBatch(cfg.AUR.MaxBatch),
				aur.WithTimeout(cfg.AURTimeout()),
				aur.WithRetries(cfg.AUR.MaxRetries),
			)
			if err != nil {
				fatal(err)
			}
			aurVersions, err := client.Info(foreignNames)
			if err != nil {
				logging.WithCode("AUR").Errorf("querying the AUR: %v", err)
				runErrors = append(runErrors, err)
			} else {
				in.AURVersions = aurVersions
			}
		}
	}

	doc, buildErrs := manifest.Build(in, alpm.NewOracle(runner))
	for _, err := range buildErrs {
		log.Errorf("%v", err)
	}
	runErrors = append(runErrors, buildErrs...)

	enforce := cfg.Space.Policy == config.PolicyEnforce
	report, err := space.NewAssessor().MostConstrained()
	if err != nil {
		if enforce && !manifestDryRun {
			fatal(err)
		}
		logging.WithCode("SPACE").Warnf("assessing disk space: %v", err)
		report = nil
	}
	if report != nil {
		avail := report.AvailableBytes
		doc.Metadata.AvailableSpaceBytes = &avail
		doc.Metadata.SpaceCheckedPath = report.Path
	}

	req := space.Requirement{
		Download: doc.Metadata.DownloadSizeTotal,
		Build:    doc.Metadata.BuildSizeTotal,
		Install:  doc.Metadata.InstallSizeTotal,
		Buffer:   cfg.MinFreeBytes(),
		Margin:   cfg.ExtraMarginBytes(),
	}
	_, warning, gateErr := space.Gate(report, req, enforce, manifestDryRun)

	path := manifestOutput
	if path == "" {
		path = cfg.Core.ManifestPath
	}
	if !manifestDryRun {
		if err := manifest.Write(doc, path); err != nil {
			fatal(err)
		}
		log.Debugf("manifest written to %s", path)
	}
	if manifestPrint {
		data, err := doc.Marshal()
		if err != nil {
			fatal(err)
		}
		os.Stdout.Write(data)
	}

	if !manifestDryRun {
		recordHistory(cfg, history.Record{
			Kind:             history.KindManifest,
			TotalPackages:    doc.Metadata.TotalPackages,
			UpdatesAvailable: doc.Metadata.UpdatesAvailable,
			ErrorCount:       len(runErrors),
			Blocked:          gateErr != nil,
			AvailableBytes:   doc.Metadata.AvailableSpaceBytes,
			CheckedPath:      doc.Metadata.SpaceCheckedPath,
		})
	}

	displayManifestSummary(doc, path, warning, len(runErrors))

	switch {
	case gateErr != nil:
		// The manifest is already on disk: the snapshot is still useful,
		// the block only signals that updating now is unsafe.
		exit(errdefs.ExitCode(gateErr))
	case manifestStrict && len(runErrors) > 0:
		exit(errdefs.ExitRuntime)
	}
}

// restrictToNames narrows the inventory to an explicit name set
func restrictToNames(installed []manifest.InstalledPackage, names []string) ([]manifest.InstalledPackage, error) {
	if len(names) == 0 {
		return installed, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}

	var subset []manifest.InstalledPackage
	for _, pkg := range installed {
		if wanted[pkg.Name] {
			subset = append(subset, pkg)
			delete(wanted, pkg.Name)
		}
	}
	for name := range wanted {
		logging.WithCode("MANIFEST").Warnf("package %s is not installed", name)
	}
	if len(subset) == 0 {
		return nil, errdefs.Runtime("none of the named packages are installed")
	}
	return subset, nil
}

func displayManifestSummary(doc *manifest.Document, path, warning string, errorCount int) {
	m := doc.Metadata

	fmt.Println()
	output.Header.Println("Inventory Manifest")
	fmt.Println()

	fmt.Printf("  Packages:  %d total\n", m.TotalPackages)
	for _, group := range doc.PackagesBySource {
		fmt.Printf("    %-20s %d\n", output.FormatSource(string(group.Source)), group.Count)
	}
	fmt.Println()

	if m.UpdatesAvailable > 0 {
		output.Info.Printf("  %d update(s) available\n", m.UpdatesAvailable)
		fmt.Printf("    Download:  %s\n", output.HumanBytes(m.DownloadSizeTotal))
		fmt.Printf("    Build:     %s\n", output.HumanBytes(m.BuildSizeTotal))
		fmt.Printf("    Install:   %s\n", output.HumanBytes(m.InstallSizeTotal))
		fmt.Printf("    Required:  %s (incl. %s free buffer)\n",
			output.HumanBytes(m.RequiredSpaceTotal), output.HumanBytes(m.MinFreeBytes))
	} else {
		output.Success.Println("  Everything is up to date")
	}

	if m.AvailableSpaceBytes != nil {
		fmt.Printf("    Available: %s on %s\n", output.HumanBytes(*m.AvailableSpaceBytes), m.SpaceCheckedPath)
	}
	fmt.Println()

	if warning != "" {
		output.Warning.Printf("  %s\n", warning)
	}
	if errorCount > 0 {
		output.Warning.Printf("  %d error(s) during collection; see the log\n", errorCount)
	}
	if manifestDryRun {
		output.Dim.Println("  Dry run: nothing written")
	} else {
		output.Success.Printf("  Manifest written to %s\n", path)
	}
}
