package alpm

import (
	"errors"
	"strings"

	"github.com/pacscout/pacscout/internal/errdefs"
	"github.com/pacscout/pacscout/internal/logging"
	"github.com/pacscout/pacscout/internal/manifest"
	"github.com/pacscout/pacscout/internal/run"
)

// Collector gathers the installed inventory from the local pacman database
type Collector struct {
	Runner run.Runner
}

// NewCollector creates a Collector backed by runner
func NewCollector(runner run.Runner) *Collector {
	return &Collector{Runner: runner}
}

// List returns every installed package as an immutable snapshot. Foreign
// packages (present locally, absent from every sync repository) are
// attributed to the "local" origin. Results come back in pacman's own
// order; callers sort as needed.
func (c *Collector) List() ([]manifest.InstalledPackage, error) {
	foreign, err := c.foreignNames()
	if err != nil {
		return nil, err
	}

	res, err := c.Runner.Run("pacman", "-Qi")
	if err != nil {
		return nil, err
	}

	var pkgs []manifest.InstalledPackage
	for _, block := range parseBlocks(res.Stdout) {
		name := fieldValue(block, "Name")
		if name == "" {
			continue
		}
		pkg := manifest.InstalledPackage{
			Name:          name,
			Version:       fieldValue(block, "Version"),
			Repository:    fieldValue(block, "Repository"),
			InstalledSize: fieldSize(block, "Installed Size"),
			InstallDate:   fieldValue(block, "Install Date"),
			ValidatedBy:   fieldValue(block, "Validated By"),
			SHA256:        fieldValue(block, "SHA-256 Sum"),
		}
		if foreign[name] {
			pkg.Repository = "local"
		}
		pkgs = append(pkgs, pkg)
	}

	if len(pkgs) == 0 {
		return nil, errdefs.Serialization("pacman -Qi produced no package blocks")
	}
	return pkgs, nil
}

// Foreign returns the foreign subset as name/version snapshots, already
// attributed to the local origin. Cheaper than List when only the archive
// candidates are needed.
func (c *Collector) Foreign() ([]manifest.InstalledPackage, error) {
	res, err := c.Runner.Run("pacman", "-Qm")
	if err != nil {
		// An empty query makes pacman exit 1 with no output. That is
		// "no foreign packages", not a failure.
		if errors.Is(err, errdefs.ErrCommandFailed) && strings.TrimSpace(res.Stdout) == "" {
			return nil, nil
		}
		return nil, err
	}

	var pkgs []manifest.InstalledPackage
	for _, line := range strings.Split(res.Stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			if len(fields) == 1 {
				logging.WithCode("PACMAN").Debugf("ignoring malformed -Qm line %q", line)
			}
			continue
		}
		pkgs = append(pkgs, manifest.InstalledPackage{
			Name:       fields[0],
			Version:    fields[1],
			Repository: "local",
		})
	}
	return pkgs, nil
}

func (c *Collector) foreignNames() (map[string]bool, error) {
	pkgs, err := c.Foreign()
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(pkgs))
	for _, pkg := range pkgs {
		names[pkg.Name] = true
	}
	return names, nil
}
