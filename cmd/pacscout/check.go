package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pacscout/pacscout/internal/config"
	"github.com/pacscout/pacscout/internal/logging"
	"github.com/pacscout/pacscout/internal/manifest"
	"github.com/pacscout/pacscout/internal/output"
	"github.com/pacscout/pacscout/internal/space"
)

var checkManifestPath string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Summarize an existing manifest",
	Long: `Read a previously written manifest and print its counts, size totals,
and a freshly recomputed disk space verdict. The command is informational
and never blocks, regardless of the capacity policy.`,
	Run: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkManifestPath, "manifest", "m", "", "Manifest path (default from config)")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	doc, err := manifest.Read(manifestPathOr(cfg, checkManifestPath))
	if err != nil {
		fatal(err)
	}
	m := doc.Metadata

	fmt.Println()
	output.Header.Println("Manifest Check")
	fmt.Println()

	fmt.Printf("  Generated: %s by %s\n", m.GeneratedAt, m.GeneratedBy)
	fmt.Printf("  Packages:  %d total\n", m.TotalPackages)
	for _, group := range doc.PackagesBySource {
		fmt.Printf("    %-20s %d\n", output.FormatSource(string(group.Source)), group.Count)
	}
	fmt.Println()

	if m.UpdatesAvailable == 0 {
		output.Success.Println("  No updates were pending at generation time")
	} else {
		output.Info.Printf("  %d update(s) pending at generation time\n", m.UpdatesAvailable)
		fmt.Printf("    Download:  %s\n", output.HumanBytes(m.DownloadSizeTotal))
		fmt.Printf("    Build:     %s\n", output.HumanBytes(m.BuildSizeTotal))
		fmt.Printf("    Install:   %s\n", output.HumanBytes(m.InstallSizeTotal))
		fmt.Printf("    Required:  %s\n", output.HumanBytes(m.RequiredSpaceTotal))
	}
	fmt.Println()

	report, err := space.NewAssessor().MostConstrained()
	if err != nil {
		logging.WithCode("SPACE").Warnf("assessing disk space: %v", err)
		output.Warning.Println("  Space: could not be determined")
		return
	}

	req := space.Requirement{
		Download: m.DownloadSizeTotal,
		Build:    m.BuildSizeTotal,
		Install:  m.InstallSizeTotal,
		Buffer:   cfg.MinFreeBytes(),
		Margin:   cfg.ExtraMarginBytes(),
	}
	status, warning, _ := space.Gate(report, req, false, true)
	switch status {
	case space.StatusSufficient:
		output.Success.Printf("  Space: %s available on %s, %s required\n",
			output.HumanBytes(report.AvailableBytes), report.Path, output.HumanBytes(req.Total()))
	default:
		output.Warning.Printf("  %s\n", warning)
	}
}

// manifestPathOr resolves an explicit manifest path flag against the config
func manifestPathOr(cfg *config.Config, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return cfg.Core.ManifestPath
}
