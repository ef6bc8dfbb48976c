package alpm

import (
	"strconv"
	"strings"

	"github.com/pacscout/pacscout/internal/errdefs"
	"github.com/pacscout/pacscout/internal/manifest"
	"github.com/pacscout/pacscout/internal/run"
)

// Oracle orders version strings by delegating to vercmp, so pacscout never
// reimplements pacman's versioning rules (epochs, pkgrel, alpha suffixes).
type Oracle struct {
	Runner run.Runner
}

// NewOracle creates an Oracle backed by runner
func NewOracle(runner run.Runner) *Oracle {
	return &Oracle{Runner: runner}
}

// Compare returns the sign of vercmp's verdict: negative when a is older
// than b, zero when equal, positive when newer.
func (o *Oracle) Compare(a, b string) (int, error) {
	res, err := o.Runner.Run("vercmp", a, b)
	if err != nil {
		return 0, err
	}

	out := strings.TrimSpace(res.Stdout)
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, errdefs.Serialization("vercmp %q %q printed %q", a, b, out)
	}

	switch {
	case n < 0:
		return -1, nil
	case n > 0:
		return 1, nil
	default:
		return 0, nil
	}
}

// Ensure Oracle satisfies the reconciler's contract
var _ manifest.Oracle = (*Oracle)(nil)
