// Package space assesses disk capacity before updates may proceed. The
// assessor deliberately reports the most storage-constrained filesystem
// among its candidates, so the gate errs on the safe side when cache,
// build, and install land on different mounts.
package space

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/pacscout/pacscout/internal/errdefs"
	"github.com/pacscout/pacscout/internal/logging"
	"github.com/pacscout/pacscout/internal/output"
)

// DefaultCandidates are probed in priority order: the package cache fills
// first during an update, then build scratch space, then the system temp
// directory, with the root filesystem as the catch-all.
var DefaultCandidates = []string{"/var/cache/pacman/pkg", "/var/tmp", "/tmp", "/"}

// Report is the chosen filesystem and its free bytes. Recomputed fresh on
// every check, never cached across runs.
type Report struct {
	Path           string
	AvailableBytes uint64
}

// Assessor probes candidate filesystems for available space
type Assessor struct {
	Candidates []string
	statfs     func(path string, st *unix.Statfs_t) error
}

// NewAssessor creates an Assessor over the default candidate list
func NewAssessor() *Assessor {
	return &Assessor{
		Candidates: DefaultCandidates,
		statfs:     unix.Statfs,
	}
}

// MostConstrained reports the candidate filesystem with the fewest
// available bytes. A candidate that does not exist is replaced by its
// nearest existing ancestor before probing. Individual probe failures are
// logged and skipped; the assessment fails only when every probe fails.
func (a *Assessor) MostConstrained() (*Report, error) {
	var chosen *Report
	var lastErr error

	for _, candidate := range a.Candidates {
		path := nearestExisting(candidate)
		avail, err := a.available(path)
		if err != nil {
			logging.WithCode("SPACE").Debugf("probing %s: %v", path, err)
			lastErr = err
			continue
		}
		if chosen == nil || avail < chosen.AvailableBytes {
			chosen = &Report{Path: path, AvailableBytes: avail}
		}
	}

	if chosen == nil {
		return nil, errdefs.Filesystem("probing disk space", fmt.Errorf("all candidates failed, last: %v", lastErr))
	}
	return chosen, nil
}

func (a *Assessor) available(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := a.statfs(path, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Frsize), nil
}

// nearestExisting walks up from path until a directory exists. The root
// always exists, so the walk terminates.
func nearestExisting(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}

// Requirement itemizes the transient space an update run needs. Buffer is
// the configured minimum-free floor; Margin is the optional extra on top.
type Requirement struct {
	Download uint64
	Build    uint64
	Install  uint64
	Buffer   uint64
	Margin   uint64
}

// Total sums every requirement part
func (r Requirement) Total() uint64 {
	return r.Download + r.Build + r.Install + r.Buffer + r.Margin
}

// Shortfall renders the canonical insufficient-space message
func (r Requirement) Shortfall(report *Report) string {
	return fmt.Sprintf("insufficient space: need ~%s (download %s + build %s + install %s + buffer %s) on %s; only %s available",
		output.HumanBytes(r.Total()),
		output.HumanBytes(r.Download),
		output.HumanBytes(r.Build),
		output.HumanBytes(r.Install),
		output.HumanBytes(r.Buffer+r.Margin),
		report.Path,
		output.HumanBytes(report.AvailableBytes))
}

// Status values for a capacity verdict
const (
	StatusSufficient   = "sufficient"
	StatusInsufficient = "insufficient"
	StatusUnknown      = "unknown"
)

// Gate compares the report against the requirement. A nil report yields
// StatusUnknown with an advisory warning. A shortfall yields the canonical
// message as warning; the error is non-nil only when enforce is set and the
// caller is not in dry-run mode.
func Gate(report *Report, req Requirement, enforce, dryRun bool) (status, warning string, err error) {
	if report == nil {
		return StatusUnknown, "disk space could not be determined", nil
	}
	if report.AvailableBytes >= req.Total() {
		return StatusSufficient, "", nil
	}

	msg := req.Shortfall(report)
	if enforce && !dryRun {
		return StatusInsufficient, msg, errdefs.Capacity(msg)
	}
	return StatusInsufficient, msg, nil
}
