// Package flatpak surfaces pending application updates from the configured
// Flatpak remotes by diffing local and remote listings.
package flatpak

import (
	"strings"

	"github.com/pacscout/pacscout/internal/run"
)

// App is one row of flatpak's column output
type App struct {
	Application string
	Version     string
	Branch      string
	Origin      string
}

// Update pairs an updatable application with its local and remote versions
type Update struct {
	Application string `json:"application"`
	Branch      string `json:"branch,omitempty"`
	Origin      string `json:"origin,omitempty"`
	Installed   string `json:"installed,omitempty"`
	Available   string `json:"available,omitempty"`
}

// Source lists installed applications and pending remote updates
type Source struct {
	Runner run.Runner
}

// NewSource creates a Source backed by runner
func NewSource(runner run.Runner) *Source {
	return &Source{Runner: runner}
}

// Installed lists locally installed applications
func (s *Source) Installed() ([]App, error) {
	res, err := s.Runner.Run("flatpak", "list", "--app", "--columns=application,version,branch,origin")
	if err != nil {
		return nil, err
	}

	var apps []App
	for _, cols := range parseColumns(res.Stdout) {
		apps = append(apps, App{
			Application: cols[0],
			Version:     cols[1],
			Branch:      cols[2],
			Origin:      cols[3],
		})
	}
	return apps, nil
}

// RemoteUpdates lists the remote rows flatpak flags as pending updates
func (s *Source) RemoteUpdates() ([]App, error) {
	res, err := s.Runner.Run("flatpak", "remote-ls", "--updates", "--app", "--columns=application,branch,origin,version")
	if err != nil {
		return nil, err
	}

	var apps []App
	for _, cols := range parseColumns(res.Stdout) {
		apps = append(apps, App{
			Application: cols[0],
			Branch:      cols[1],
			Origin:      cols[2],
			Version:     cols[3],
		})
	}
	return apps, nil
}

// Updates diffs the remote update listing against the installed set by
// application ID. Remote rows for applications not installed locally are
// ignored (runtimes, bundled remotes).
func (s *Source) Updates() ([]Update, error) {
	installed, err := s.Installed()
	if err != nil {
		return nil, err
	}
	remote, err := s.RemoteUpdates()
	if err != nil {
		return nil, err
	}

	local := make(map[string]App, len(installed))
	for _, app := range installed {
		local[app.Application] = app
	}

	var updates []Update
	for _, app := range remote {
		have, ok := local[app.Application]
		if !ok {
			continue
		}
		updates = append(updates, Update{
			Application: app.Application,
			Branch:      app.Branch,
			Origin:      app.Origin,
			Installed:   have.Version,
			Available:   app.Version,
		})
	}
	return updates, nil
}

// parseColumns splits tab-separated rows, padding missing trailing columns
// so callers can index the full column set unconditionally. flatpak leaves
// trailing columns out entirely when a value is empty.
func parseColumns(out string) [][4]string {
	var rows [][4]string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		var row [4]string
		for i, col := range strings.Split(line, "\t") {
			if i >= len(row) {
				break
			}
			row[i] = strings.TrimSpace(col)
		}
		if row[0] == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}
