package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pacscout/pacscout/internal/errdefs"
	"github.com/pacscout/pacscout/internal/logging"
	"github.com/pacscout/pacscout/internal/manifest"
	"github.com/pacscout/pacscout/internal/output"
)

var (
	exportManifestPath string
	exportFormat       string
	exportSources      []string
	exportVersions     bool
	exportOutput       string
)

// exportRow is one exported package
type exportRow struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	Source  string `json:"source" yaml:"source"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the package list from a manifest",
	Long: `Emit the manifest's package names in plain, JSON, or YAML form, for
replaying an installation elsewhere or feeding other tooling.

Examples:
  pacscout export                         One name per line
  pacscout export --versions              Names with installed versions
  pacscout export --source aur --format yaml
  pacscout export --output packages.txt`,
	Run: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportManifestPath, "manifest", "m", "", "Manifest path (default from config)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "plain", "Output format: plain, json, or yaml")
	exportCmd.Flags().StringSliceVar(&exportSources, "source", nil, "Only these sources (pacman, aur, local, unknown)")
	exportCmd.Flags().BoolVar(&exportVersions, "versions", false, "Include installed versions")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to this file instead of stdout")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	doc, err := manifest.Read(manifestPathOr(cfg, exportManifestPath))
	if err != nil {
		fatal(err)
	}

	wanted := make(map[manifest.Source]bool, len(exportSources))
	for _, s := range exportSources {
		source, err := manifest.ParseSource(s)
		if err != nil {
			fatal(errdefs.Config("%v", err))
		}
		wanted[source] = true
	}

	var rows []exportRow
	for _, name := range doc.Names() {
		entry := doc.Packages[name]
		if len(wanted) > 0 && !wanted[entry.Source] {
			continue
		}
		row := exportRow{Name: name, Source: string(entry.Source)}
		if exportVersions {
			row.Version = entry.InstalledVersion
		}
		rows = append(rows, row)
	}

	data, err := renderExport(rows, exportFormat)
	if err != nil {
		fatal(err)
	}

	if exportOutput == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(exportOutput, data, 0644); err != nil {
		fatal(errdefs.Filesystem("writing "+exportOutput, err))
	}
	logging.WithCode("MANIFEST").Debugf("exported %d packages to %s", len(rows), exportOutput)
	output.PrintSuccess("Exported %d package(s) to %s", len(rows), exportOutput)
}

func renderExport(rows []exportRow, format string) ([]byte, error) {
	switch format {
	case "plain":
		var b strings.Builder
		for _, row := range rows {
			b.WriteString(row.Name)
			if row.Version != "" {
				b.WriteString(" " + row.Version)
			}
			b.WriteByte('\n')
		}
		return []byte(b.String()), nil

	case "json":
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return nil, errdefs.Serialization("encoding export: %v", err)
		}
		return append(data, '\n'), nil

	case "yaml":
		data, err := yaml.Marshal(rows)
		if err != nil {
			return nil, errdefs.Serialization("encoding export: %v", err)
		}
		return data, nil

	default:
		return nil, errdefs.Config("unknown export format %q (expected plain, json, or yaml)", format)
	}
}
