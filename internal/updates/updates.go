// Package updates narrows a written manifest to the pending-update rows a
// caller asked about. Filtering never re-queries live sources; it is a pure
// view over the manifest document.
package updates

import (
	"regexp"

	"github.com/pacscout/pacscout/internal/errdefs"
	"github.com/pacscout/pacscout/internal/manifest"
)

// Filter selects manifest entries. The zero value selects every entry with
// a pending update.
type Filter struct {
	Sources []manifest.Source
	Include []*regexp.Regexp
	Exclude []*regexp.Regexp
	Names   map[string]bool
	All     bool
}

// Row is one selected manifest entry, flattened for rendering
type Row struct {
	Name      string          `json:"name"`
	Source    manifest.Source `json:"source"`
	Installed string          `json:"installed"`
	Newer     string          `json:"newer,omitempty"`
	Transient *uint64         `json:"transient_size_estimate,omitempty"`
}

// New builds a Filter from CLI-shaped inputs. An unknown source or an
// invalid regular expression is a configuration error.
func New(sources, include, exclude, names []string, all bool) (*Filter, error) {
	f := &Filter{All: all}

	for _, s := range sources {
		source, err := manifest.ParseSource(s)
		if err != nil {
			return nil, errdefs.Config("%v", err)
		}
		f.Sources = append(f.Sources, source)
	}

	var err error
	if f.Include, err = compileAll(include); err != nil {
		return nil, err
	}
	if f.Exclude, err = compileAll(exclude); err != nil {
		return nil, err
	}

	if len(names) > 0 {
		f.Names = make(map[string]bool, len(names))
		for _, name := range names {
			f.Names[name] = true
		}
	}
	return f, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	var compiled []*regexp.Regexp
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errdefs.Config("invalid pattern %q: %v", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Apply walks doc in its lexicographic order and returns the selected rows
func (f *Filter) Apply(doc *manifest.Document) []Row {
	var rows []Row
	for _, name := range doc.Names() {
		entry := doc.Packages[name]
		if !f.matches(name, entry) {
			continue
		}
		row := Row{
			Name:      name,
			Source:    entry.Source,
			Installed: entry.InstalledVersion,
			Transient: entry.TransientSizeEstimate,
		}
		if entry.NewerVersion != nil {
			row.Newer = *entry.NewerVersion
		}
		rows = append(rows, row)
	}
	return rows
}

// matches applies the gates in order: update verdict, explicit names,
// source, include, exclude. Exclude wins over include.
func (f *Filter) matches(name string, entry manifest.Entry) bool {
	if !f.All && !entry.UpdateAvailable {
		return false
	}
	if f.Names != nil && !f.Names[name] {
		return false
	}
	if len(f.Sources) > 0 && !containsSource(f.Sources, entry.Source) {
		return false
	}
	if len(f.Include) > 0 && !matchesAny(f.Include, name) {
		return false
	}
	if matchesAny(f.Exclude, name) {
		return false
	}
	return true
}

func containsSource(sources []manifest.Source, source manifest.Source) bool {
	for _, s := range sources {
		if s == source {
			return true
		}
	}
	return false
}

func matchesAny(patterns []*regexp.Regexp, name string) bool {
	for _, re := range patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
