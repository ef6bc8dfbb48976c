package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pacscout/pacscout/internal/errdefs"
	"github.com/pacscout/pacscout/internal/history"
	"github.com/pacscout/pacscout/internal/output"
	"github.com/pacscout/pacscout/internal/plan"
	"github.com/pacscout/pacscout/internal/space"
	"github.com/pacscout/pacscout/internal/version"
)

var (
	// planJSON dumps the plan document instead of the human rendering
	planJSON bool
	// planDryRun downgrades a capacity block and skips the history row
	planDryRun bool
	// planStrict turns accumulated errors into a non-zero exit
	planStrict bool
	// planNoNews suppresses the advisory annotation
	planNoNews bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Aggregate pending updates from every enabled source",
	Long: `Collect pending updates from pacman, the AUR, Flatpak, and fwupd, gate
the result against the disk capacity policy, and annotate it with the
detected AUR helper and recent distribution news.

Examples:
  pacscout plan            Human-readable plan
  pacscout plan --json     Plan document on stdout
  pacscout plan --dry-run  Never block on a capacity shortfall`,
	Run: runPlan,
}

func init() {
	planCmd.Flags().BoolVar(&planJSON, "json", false, "Print the plan as JSON")
	planCmd.Flags().BoolVar(&planDryRun, "dry-run", false, "Report a capacity shortfall without blocking")
	planCmd.Flags().BoolVar(&planStrict, "strict", false, "Exit non-zero when any source reported an error")
	planCmd.Flags().BoolVar(&planNoNews, "no-news", false, "Skip the news advisory annotation")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	startRunLog(cfg)

	opts := []plan.AggregatorOption{
		plan.WithGeneratedBy(version.Stamp()),
		plan.WithDryRun(planDryRun),
	}
	if planNoNews {
		opts = append(opts, plan.WithoutNews())
	}

	agg, err := plan.NewAggregator(cfg, opts...)
	if err != nil {
		fatal(err)
	}

	doc, blockErr := agg.Build()
	if doc == nil {
		fatal(blockErr)
	}

	if planJSON {
		data, err := doc.Marshal()
		if err != nil {
			fatal(err)
		}
		os.Stdout.Write(data)
	} else {
		displayPlan(doc)
	}

	if !planDryRun {
		recordHistory(cfg, history.Record{
			Kind:             history.KindPlan,
			UpdatesAvailable: doc.Total(),
			ErrorCount:       len(doc.Metadata.Errors),
			Blocked:          blockErr != nil,
			AvailableBytes:   doc.Metadata.Space.AvailableBytes,
			CheckedPath:      doc.Metadata.Space.CheckedPath,
		})
	}

	switch {
	case blockErr != nil:
		exit(errdefs.ExitCode(blockErr))
	case planStrict && len(doc.Metadata.Errors) > 0:
		exit(errdefs.ExitRuntime)
	}
}

func displayPlan(doc *plan.Document) {
	fmt.Println()
	output.Header.Println("Update Plan")
	fmt.Println()

	displayPacmanUpdates(doc.PacmanUpdates)
	displayAURUpdates(doc.AURUpdates)
	displayFlatpakUpdates(doc)
	displayFwupdUpdates(doc)

	if doc.Total() == 0 {
		output.Success.Println("  Everything is up to date")
		fmt.Println()
	}

	if doc.Metadata.AURHelper != "" {
		fmt.Printf("  AUR helper: %s\n", doc.Metadata.AURHelper)
	}

	displaySpaceVerdict(doc.Metadata.Space)
	displayAdvisories(doc)

	for _, msg := range doc.Metadata.Errors {
		output.Error.Printf("  error: %s\n", msg)
	}
	if doc.Total() > 0 {
		fmt.Println()
		output.Info.Printf("Total: %d pending update(s)\n", doc.Total())
	}
}

func displayPacmanUpdates(updates []plan.PacmanUpdate) {
	if len(updates) == 0 {
		return
	}
	fmt.Printf("  %s %d update(s)\n", output.FormatSource("pacman"), len(updates))
	for _, u := range updates {
		sizes := ""
		if u.DownloadSize != nil {
			sizes = output.Sprintf(output.Dim, " (%s download)", output.HumanBytes(*u.DownloadSize))
		}
		fmt.Printf("    %s %s → %s%s\n", output.FormatPackage(u.Name), u.Installed, u.Available, sizes)
	}
	fmt.Println()
}

func displayAURUpdates(updates []plan.AURUpdate) {
	if len(updates) == 0 {
		return
	}
	fmt.Printf("  %s %d update(s)\n", output.FormatSource("aur"), len(updates))
	for _, u := range updates {
		fmt.Printf("    %s %s → %s\n", output.FormatPackage(u.Name), u.Installed, u.Available)
	}
	fmt.Println()
}

func displayFlatpakUpdates(doc *plan.Document) {
	if len(doc.FlatpakUpdates) == 0 {
		return
	}
	fmt.Printf("  %s %d update(s)\n", output.Sprintf(output.Info, "[flatpak]"), len(doc.FlatpakUpdates))
	for _, u := range doc.FlatpakUpdates {
		from := u.Installed
		if from == "" {
			from = "?"
		}
		fmt.Printf("    %s %s → %s (%s)\n", output.FormatPackage(u.Application), from, u.Available, u.Origin)
	}
	fmt.Println()
}

func displayFwupdUpdates(doc *plan.Document) {
	if len(doc.FwupdUpdates) == 0 {
		return
	}
	fmt.Printf("  %s %d update(s)\n", output.Sprintf(output.Info, "[fwupd]"), len(doc.FwupdUpdates))
	for _, u := range doc.FwupdUpdates {
		fmt.Printf("    %s %s → %s\n", output.FormatPackage(u.Device), u.Installed, u.Available)
		if u.Checksum != "" {
			output.Dim.Printf("      checksum %s  trust %s\n", u.Checksum, u.Trust)
		}
	}
	fmt.Println()
}

func displaySpaceVerdict(sp plan.SpaceInfo) {
	line := fmt.Sprintf("  Space: %s required", output.HumanBytes(sp.RequiredBytes))
	if sp.AvailableBytes != nil {
		line += fmt.Sprintf(", %s available on %s", output.HumanBytes(*sp.AvailableBytes), sp.CheckedPath)
	}

	switch sp.Status {
	case space.StatusSufficient:
		output.Success.Println(line)
	case space.StatusInsufficient:
		output.Error.Println(line)
		output.Warning.Printf("  %s\n", sp.Warning)
	default:
		output.Warning.Println(line)
		if sp.Warning != "" {
			output.Warning.Printf("  %s\n", sp.Warning)
		}
	}
}

func displayAdvisories(doc *plan.Document) {
	if len(doc.Metadata.Advisories) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("  Recent news:")
	for _, adv := range doc.Metadata.Advisories {
		date := ""
		if adv.Date != "" {
			date = adv.Date + "  "
		}
		fmt.Printf("    %s%s\n", output.Sprint(output.Dim, date), adv.Title)
	}
}
