package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pacscout/pacscout/internal/errdefs"
	"github.com/pacscout/pacscout/internal/history"
	"github.com/pacscout/pacscout/internal/output"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent recorded runs",
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Show at most this many runs")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print the runs as JSON")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if !cfg.History.Enabled {
		fatal(errdefs.Config("history recording is disabled in the configuration"))
	}

	path, err := cfg.HistoryPath()
	if err != nil {
		fatal(err)
	}
	ledger, err := history.Open(path)
	if err != nil {
		fatal(err)
	}
	defer ledger.Close()

	records, err := ledger.Recent(historyLimit)
	if err != nil {
		fatal(err)
	}

	if historyJSON {
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			fatal(err)
		}
		os.Stdout.Write(append(data, '\n'))
		return
	}

	if len(records) == 0 {
		output.PrintInfo("No recorded runs yet")
		return
	}

	fmt.Println()
	output.Header.Println("Recent Runs")
	fmt.Println()

	for _, rec := range records {
		stamp := rec.StartedAt.Local().Format("2006-01-02 15:04:05")
		line := fmt.Sprintf("  %s  %-8s  %d update(s)", stamp, rec.Kind, rec.UpdatesAvailable)
		if rec.Kind == history.KindManifest {
			line += fmt.Sprintf(" of %d package(s)", rec.TotalPackages)
		}
		fmt.Println(line)

		if rec.Blocked {
			output.Error.Println("      blocked: insufficient disk space")
		}
		if rec.ErrorCount > 0 {
			output.Warning.Printf("      %d error(s)\n", rec.ErrorCount)
		}
		if rec.AvailableBytes != nil {
			output.Dim.Printf("      %s free on %s\n", output.HumanBytes(*rec.AvailableBytes), rec.CheckedPath)
		}
	}
}
