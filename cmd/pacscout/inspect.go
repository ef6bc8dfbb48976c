package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pacscout/pacscout/internal/errdefs"
	"github.com/pacscout/pacscout/internal/manifest"
	"github.com/pacscout/pacscout/internal/output"
)

var (
	inspectManifestPath string
	inspectJSON         bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <name>",
	Short: "Show one package's manifest entry",
	Args:  cobra.ExactArgs(1),
	Run:   runInspect,
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectManifestPath, "manifest", "m", "", "Manifest path (default from config)")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Print the entry as JSON")

	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	name := args[0]

	doc, err := manifest.Read(manifestPathOr(cfg, inspectManifestPath))
	if err != nil {
		fatal(err)
	}

	entry, ok := doc.Packages[name]
	if !ok {
		fatal(errdefs.Runtime("package %s is not in the manifest", name))
	}

	if inspectJSON {
		data, err := json.MarshalIndent(entry, "", "  ")
		if err != nil {
			fatal(err)
		}
		os.Stdout.Write(append(data, '\n'))
		return
	}

	fmt.Println()
	fmt.Printf("%s %s\n", output.FormatPackage(name), output.FormatSource(string(entry.Source)))
	fmt.Println()

	fmt.Printf("  Installed: %s\n", entry.InstalledVersion)
	if entry.RepoVersion != nil {
		fmt.Printf("  Repo:      %s\n", *entry.RepoVersion)
	}
	if entry.AURVersion != nil {
		fmt.Printf("  AUR:       %s\n", *entry.AURVersion)
	}
	if entry.UpdateAvailable && entry.NewerVersion != nil {
		output.Info.Printf("  Update:    %s available\n", *entry.NewerVersion)
	} else {
		output.Success.Println("  Update:    none pending")
	}
	if entry.Notes != "" {
		output.Warning.Printf("  Note:      %s\n", entry.Notes)
	}

	if entry.InstalledSizeBytes != nil {
		fmt.Printf("  Size:      %s installed\n", output.HumanBytes(*entry.InstalledSizeBytes))
	}
	if entry.TransientSizeEstimate != nil {
		fmt.Printf("  Estimate:  ~%s transient", output.HumanBytes(*entry.TransientSizeEstimate))
		if entry.DownloadSizeSelected != nil {
			fmt.Printf(" (%s download", output.HumanBytes(*entry.DownloadSizeSelected))
			if entry.BuildSizeEstimate != nil {
				fmt.Printf(", %s build", output.HumanBytes(*entry.BuildSizeEstimate))
			}
			fmt.Print(")")
		}
		fmt.Println()
	}

	if entry.InstallDate != "" {
		fmt.Printf("  Installed on %s\n", entry.InstallDate)
	}
	if entry.ValidatedBy != "" {
		fmt.Printf("  Validated by %s\n", entry.ValidatedBy)
	}
	if entry.SHA256Short != "" {
		output.Dim.Printf("  sha256 %s\n", entry.SHA256Short)
	}
}
