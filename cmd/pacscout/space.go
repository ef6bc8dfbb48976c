package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pacscout/pacscout/internal/output"
	"github.com/pacscout/pacscout/internal/space"
)

// spaceRequired previews the gate against this many transient bytes
var spaceRequired uint64

var spaceCmd = &cobra.Command{
	Use:   "space",
	Short: "Report free disk space on the update-relevant filesystems",
	Long: `Probe the candidate filesystems an update would touch and report the
most constrained one. With --required, preview the capacity gate for a
hypothetical transient size.`,
	Run: runSpace,
}

func init() {
	spaceCmd.Flags().Uint64Var(&spaceRequired, "required", 0, "Preview the gate for this many transient bytes")

	rootCmd.AddCommand(spaceCmd)
}

func runSpace(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	assessor := space.NewAssessor()
	report, err := assessor.MostConstrained()
	if err != nil {
		fatal(err)
	}

	fmt.Println()
	output.Header.Println("Disk Space")
	fmt.Println()

	fmt.Printf("  Most constrained: %s\n", report.Path)
	fmt.Printf("  Available:        %s\n", output.HumanBytes(report.AvailableBytes))
	fmt.Printf("  Configured floor: %s", output.HumanBytes(cfg.MinFreeBytes()))
	if margin := cfg.ExtraMarginBytes(); margin > 0 {
		fmt.Printf(" + %s margin", output.HumanBytes(margin))
	}
	fmt.Println()
	fmt.Printf("  Policy:           %s\n", cfg.Space.Policy)
	fmt.Println()

	if spaceRequired == 0 {
		return
	}

	req := space.Requirement{
		Install: spaceRequired,
		Buffer:  cfg.MinFreeBytes(),
		Margin:  cfg.ExtraMarginBytes(),
	}
	status, warning, _ := space.Gate(report, req, false, true)
	switch status {
	case space.StatusSufficient:
		output.Success.Printf("  %s transient would fit (%s required in total)\n",
			output.HumanBytes(spaceRequired), output.HumanBytes(req.Total()))
	default:
		output.Warning.Printf("  %s\n", warning)
	}
}
