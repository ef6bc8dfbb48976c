package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pacscout/pacscout/internal/logging"
	"github.com/pacscout/pacscout/internal/output"
)

// logsPrune applies the retention policy immediately
var logsPrune bool

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List run logs",
	Long: `List the per-run log files with their sizes. With --prune, apply the
configured retention policy now instead of waiting for the next run.`,
	Run: runLogs,
}

func init() {
	logsCmd.Flags().BoolVar(&logsPrune, "prune", false, "Apply the retention policy now")

	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	dir, err := cfg.LogDirectory()
	if err != nil {
		fatal(err)
	}

	if logsPrune {
		removed, err := logging.Prune(dir, cfg.Logging.RetentionDays, cfg.Logging.RetentionMegabytes)
		if err != nil {
			fatal(err)
		}
		output.PrintSuccess("Pruned %d log file(s)", removed)
	}

	files, err := logging.List(dir)
	if err != nil {
		fatal(err)
	}
	if len(files) == 0 {
		output.PrintInfo("No run logs in %s", dir)
		return
	}

	fmt.Println()
	output.Header.Printf("Run Logs (%s)\n", dir)
	fmt.Println()

	var total int64
	for _, f := range files {
		total += f.Size
		hashMark := " "
		if f.Hashed {
			hashMark = output.Sprint(output.Success, "✓")
		}
		fmt.Printf("  %s %-40s %10s\n", hashMark, filepath.Base(f.Path), output.HumanBytes(uint64(f.Size)))
	}
	fmt.Println()
	output.Info.Printf("Total: %d file(s), %s\n", len(files), output.HumanBytes(uint64(total)))
}
