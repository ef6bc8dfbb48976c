// Package manifest holds the shared data model and the reconciliation,
// estimation, and aggregation logic that turns a host's installed inventory
// plus upstream version data into one deterministic manifest document.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pacscout/pacscout/internal/errdefs"
)

// Source identifies which upstream catalog a package's update should come
// from. Serialized as its lowercase string; ordered lexicographically for
// deterministic grouping.
type Source string

const (
	SourcePacman  Source = "pacman"
	SourceAUR     Source = "aur"
	SourceLocal   Source = "local"
	SourceUnknown Source = "unknown"
)

// Sources returns all sources in their canonical order
func Sources() []Source {
	return []Source{SourceAUR, SourceLocal, SourcePacman, SourceUnknown}
}

// ParseSource converts a user-supplied string into a Source
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourcePacman, SourceAUR, SourceLocal, SourceUnknown:
		return Source(s), nil
	default:
		return "", fmt.Errorf("unknown source %q (expected pacman, aur, local, or unknown)", s)
	}
}

// InstalledPackage is the immutable snapshot of one locally installed
// package, captured once per run.
type InstalledPackage struct {
	Name          string
	Version       string
	Repository    string // "local" for foreign packages, else the -Qi Repository field
	InstalledSize *uint64
	InstallDate   string
	ValidatedBy   string
	SHA256        string
}

// IsLocal reports whether the package was built outside any repository
func (p InstalledPackage) IsLocal() bool {
	return p.Repository == "local"
}

// VersionInfo is one upstream source's knowledge about a package
type VersionInfo struct {
	Version       string
	DownloadSize  *uint64
	InstalledSize *uint64
}

// HashDisplayLength is the truncation applied to content hashes everywhere
// they appear in manifests and plans.
const HashDisplayLength = 16

// TruncateHash shortens a hash to the shared display length
func TruncateHash(hash string) string {
	if len(hash) > HashDisplayLength {
		return hash[:HashDisplayLength]
	}
	return hash
}

// Entry is one reconciled package in the manifest. Entries are created by
// Build and never mutated afterward.
type Entry struct {
	InstalledVersion      string  `json:"installed_version"`
	Source                Source  `json:"source"`
	NewerVersion          *string `json:"newer_version,omitempty"`
	UpdateAvailable       bool    `json:"update_available"`
	Notes                 string  `json:"notes,omitempty"`
	RepoVersion           *string `json:"repo_version,omitempty"`
	AURVersion            *string `json:"aur_version,omitempty"`
	DownloadSizeRepo      *uint64 `json:"download_size_repo,omitempty"`
	InstalledSizeRepo     *uint64 `json:"installed_size_repo,omitempty"`
	DownloadSizeSelected  *uint64 `json:"download_size_selected,omitempty"`
	InstalledSizeSelected *uint64 `json:"installed_size_selected,omitempty"`
	InstalledSizeBytes    *uint64 `json:"installed_size_bytes,omitempty"`
	InstallDate           string  `json:"install_date,omitempty"`
	ValidatedBy           string  `json:"validated_by,omitempty"`
	SHA256Short           string  `json:"sha256_short,omitempty"`
	InstallSizeEstimate   *uint64 `json:"install_size_estimate,omitempty"`
	BuildSizeEstimate     *uint64 `json:"build_size_estimate,omitempty"`
	TransientSizeEstimate *uint64 `json:"transient_size_estimate,omitempty"`
}

// Metadata is the manifest's rollup block. Size totals sum only entries
// with UpdateAvailable set.
type Metadata struct {
	GeneratedAt         string  `json:"generated_at"`
	GeneratedBy         string  `json:"generated_by"`
	TotalPackages       int     `json:"total_packages"`
	PacmanPackages      int     `json:"pacman_packages"`
	AURPackages         int     `json:"aur_packages"`
	LocalPackages       int     `json:"local_packages"`
	UnknownPackages     int     `json:"unknown_packages"`
	UpdatesAvailable    int     `json:"updates_available"`
	DownloadSizeTotal   uint64  `json:"download_size_total"`
	BuildSizeTotal      uint64  `json:"build_size_total"`
	InstallSizeTotal    uint64  `json:"install_size_total"`
	TransientSizeTotal  uint64  `json:"transient_size_total"`
	MinFreeBytes        uint64  `json:"min_free_bytes"`
	RequiredSpaceTotal  uint64  `json:"required_space_total"`
	AvailableSpaceBytes *uint64 `json:"available_space_bytes,omitempty"`
	SpaceCheckedPath    string  `json:"space_checked_path,omitempty"`
}

// SourceGroup lists the packages attributed to one source
type SourceGroup struct {
	Source   Source   `json:"source"`
	Count    int      `json:"count"`
	Packages []string `json:"packages"`
}

// Document is the root manifest aggregate. encoding/json emits map keys in
// sorted order, so marshalling the same document twice is byte-identical.
type Document struct {
	Metadata         Metadata         `json:"metadata"`
	Packages         map[string]Entry `json:"packages"`
	PackagesBySource []SourceGroup    `json:"packages_by_source"`
}

// Names returns the package names in lexicographic order
func (d *Document) Names() []string {
	names := make([]string, 0, len(d.Packages))
	for name := range d.Packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Marshal renders the document as indented JSON with a trailing newline
func (d *Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, errdefs.Serialization("encoding manifest: %v", err)
	}
	return append(data, '\n'), nil
}

// Write stores the document at path. The parent directory is created mode
// 0700 and the file ends up mode 0600; the write goes through a temp file
// in the same directory so readers never observe a partial manifest.
func Write(d *Document, path string) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errdefs.Filesystem("creating "+dir, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return errdefs.Filesystem("writing "+tmp, err)
	}
	if err := os.Chmod(tmp, 0600); err != nil {
		os.Remove(tmp)
		return errdefs.Filesystem("chmod "+tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errdefs.Filesystem("renaming into "+path, err)
	}
	return nil
}

// Read loads a previously written manifest
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errdefs.Filesystem("reading "+path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errdefs.Serialization("parsing manifest %s: %v", path, err)
	}
	return &doc, nil
}
