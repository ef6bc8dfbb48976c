package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pacscout/pacscout/internal/manifest"
	"github.com/pacscout/pacscout/internal/output"
	"github.com/pacscout/pacscout/internal/updates"
)

var (
	updatesManifestPath string
	updatesSources      []string
	updatesInclude      []string
	updatesExclude      []string
	updatesAll          bool
	updatesJSON         bool
)

var updatesCmd = &cobra.Command{
	Use:   "updates [names...]",
	Short: "List pending updates from a manifest",
	Long: `Read a previously written manifest and list its pending updates,
optionally narrowed by source, regex, or an explicit name set.

Examples:
  pacscout updates                      All pending updates
  pacscout updates --source aur         AUR updates only
  pacscout updates --include '^linux'   Kernel packages
  pacscout updates --all                Every package, current or not`,
	Run: runUpdates,
}

func init() {
	updatesCmd.Flags().StringVarP(&updatesManifestPath, "manifest", "m", "", "Manifest path (default from config)")
	updatesCmd.Flags().StringSliceVar(&updatesSources, "source", nil, "Only these sources (pacman, aur, local, unknown)")
	updatesCmd.Flags().StringSliceVar(&updatesInclude, "include", nil, "Only names matching any of these regexes")
	updatesCmd.Flags().StringSliceVar(&updatesExclude, "exclude", nil, "Drop names matching any of these regexes")
	updatesCmd.Flags().BoolVar(&updatesAll, "all", false, "Include packages without a pending update")
	updatesCmd.Flags().BoolVar(&updatesJSON, "json", false, "Print the rows as JSON")

	rootCmd.AddCommand(updatesCmd)
}

func runUpdates(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	doc, err := manifest.Read(manifestPathOr(cfg, updatesManifestPath))
	if err != nil {
		fatal(err)
	}

	filter, err := updates.New(updatesSources, updatesInclude, updatesExclude, args, updatesAll)
	if err != nil {
		fatal(err)
	}
	rows := filter.Apply(doc)

	if updatesJSON {
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			fatal(err)
		}
		os.Stdout.Write(append(data, '\n'))
		return
	}

	if len(rows) == 0 {
		output.Success.Println("No pending updates match")
		return
	}

	for _, row := range rows {
		line := fmt.Sprintf("%s %s  %s", output.FormatSource(string(row.Source)), output.FormatPackage(row.Name), row.Installed)
		if row.Newer != "" {
			line += " → " + row.Newer
		}
		if row.Transient != nil {
			line += output.Sprintf(output.Dim, "  ~%s", output.HumanBytes(*row.Transient))
		}
		fmt.Println(line)
	}
	fmt.Println()
	output.Info.Printf("Total: %d update(s)\n", len(rows))
}
