package alpm

import (
	"errors"
	"strings"

	"github.com/pacscout/pacscout/internal/errdefs"
	"github.com/pacscout/pacscout/internal/logging"
	"github.com/pacscout/pacscout/internal/manifest"
	"github.com/pacscout/pacscout/internal/run"
)

// siChunk bounds names per pacman -Si invocation, keeping the argument list
// well under ARG_MAX even for hosts with thousands of packages.
const siChunk = 64

// Catalog queries the sync repositories for advertised versions and sizes
type Catalog struct {
	Runner run.Runner
}

// NewCatalog creates a Catalog backed by runner
func NewCatalog(runner run.Runner) *Catalog {
	return &Catalog{Runner: runner}
}

// Query looks up names in the sync database via pacman -Si, in chunks.
// Names unknown to every repository are simply absent from the result:
// pacman exits non-zero when any name is unknown but still prints the
// blocks it resolved, so a non-zero exit with output is tolerated. A
// non-zero exit with no output at all fails the query.
func (c *Catalog) Query(names []string) (map[string]manifest.VersionInfo, error) {
	infos := make(map[string]manifest.VersionInfo, len(names))

	for start := 0; start < len(names); start += siChunk {
		end := start + siChunk
		if end > len(names) {
			end = len(names)
		}

		args := append([]string{"-Si"}, names[start:end]...)
		res, err := c.Runner.Run("pacman", args...)
		if err != nil {
			if !errors.Is(err, errdefs.ErrCommandFailed) || strings.TrimSpace(res.Stdout) == "" {
				return nil, err
			}
			logging.WithCode("PACMAN").Debugf("pacman -Si batch partially resolved: %v", err)
		}

		for _, block := range parseBlocks(res.Stdout) {
			name := fieldValue(block, "Name")
			if name == "" {
				continue
			}
			infos[name] = manifest.VersionInfo{
				Version:       fieldValue(block, "Version"),
				DownloadSize:  fieldSize(block, "Download Size"),
				InstalledSize: fieldSize(block, "Installed Size"),
			}
		}
	}
	return infos, nil
}
