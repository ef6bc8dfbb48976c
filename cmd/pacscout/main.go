package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pacscout/pacscout/internal/config"
	"github.com/pacscout/pacscout/internal/errdefs"
	"github.com/pacscout/pacscout/internal/history"
	"github.com/pacscout/pacscout/internal/logging"
	"github.com/pacscout/pacscout/internal/output"
)

var (
	configPath string
	verbose    bool
	quiet      bool
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "pacscout",
	Short: "Software inventory and update reconnaissance for Arch Linux hosts",
	Long: `pacscout inspects an Arch Linux host without modifying it: it reconciles
the installed package inventory against the sync repositories and the AUR
into a manifest, and aggregates pending updates from pacman, the AUR,
Flatpak, and fwupd into a plan gated by a disk capacity policy.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logging.SetVerbose(true)
		}
		if quiet {
			logging.SetQuiet(true)
		}
		if noColor {
			output.NoColor()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

// loadConfig resolves the effective configuration, applies its log level
// (unless a verbosity flag already did), and dies on a Config error.
func loadConfig() *config.Config {
	cfg, path, warnings, err := config.Load(configPath)
	if err != nil {
		fatal(err)
	}
	for _, w := range warnings {
		logging.WithCode("CONFIG").Warnf("%s", w)
	}
	if path != "" {
		logging.WithCode("CONFIG").Debugf("loaded %s", path)
	}
	if !verbose && !quiet {
		if err := logging.SetLevel(cfg.Logging.Level); err != nil {
			fatal(err)
		}
	}
	return cfg
}

// startRunLog attaches the per-run log file and prunes old ones. Failures
// never stop the run.
func startRunLog(cfg *config.Config) {
	if !cfg.Logging.File {
		return
	}
	dir, err := cfg.LogDirectory()
	if err != nil {
		logging.WithCode("LOG").Warnf("resolving log directory: %v", err)
		return
	}
	path, err := logging.EnableFileLogging(dir)
	if err != nil {
		logging.WithCode("LOG").Warnf("file logging disabled: %v", err)
		return
	}
	logging.WithCode("LOG").Debugf("logging to %s", path)

	removed, err := logging.Prune(dir, cfg.Logging.RetentionDays, cfg.Logging.RetentionMegabytes)
	if err != nil {
		logging.WithCode("LOG").Debugf("pruning logs: %v", err)
	} else if removed > 0 {
		logging.WithCode("LOG").Debugf("pruned %d old log files", removed)
	}
}

// recordHistory appends one run row to the ledger. Recording failures are
// logged, never fatal.
func recordHistory(cfg *config.Config, rec history.Record) {
	if !cfg.History.Enabled {
		return
	}
	path, err := cfg.HistoryPath()
	if err != nil {
		logging.WithCode("HISTORY").Warnf("resolving history path: %v", err)
		return
	}
	ledger, err := history.Open(path)
	if err != nil {
		logging.WithCode("HISTORY").Warnf("opening history: %v", err)
		return
	}
	defer ledger.Close()

	if err := ledger.Append(rec); err != nil {
		logging.WithCode("HISTORY").Warnf("recording run: %v", err)
	}
}

// fatal logs err on stderr and exits with its mapped code
func fatal(err error) {
	logging.Errorf("%v", err)
	exit(errdefs.ExitCode(err))
}

// exit finalizes the run log before terminating
func exit(code int) {
	if err := logging.Finalize(); err != nil {
		fmt.Fprintf(os.Stderr, "finalizing log: %v\n", err)
	}
	os.Exit(code)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		exit(1)
	}
	exit(0)
}
