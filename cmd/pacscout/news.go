package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pacscout/pacscout/internal/news"
	"github.com/pacscout/pacscout/internal/output"
)

// newsLimit caps the number of advisories shown
var newsLimit int

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Show recent distribution news advisories",
	Run:   runNews,
}

func init() {
	newsCmd.Flags().IntVarP(&newsLimit, "limit", "n", 0, "Show at most this many advisories (default from config)")

	rootCmd.AddCommand(newsCmd)
}

func runNews(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	extractor := news.Extractor{
		Selector: cfg.News.Selector,
		XPath:    cfg.News.XPath,
		MaxItems: cfg.News.MaxItems,
	}
	if newsLimit > 0 {
		extractor.MaxItems = newsLimit
	}

	advisories, err := news.NewClient(cfg.News.URL, extractor).Recent()
	if err != nil {
		fatal(err)
	}

	fmt.Println()
	output.Header.Println("Distribution News")
	fmt.Println()

	for _, adv := range advisories {
		if adv.Date != "" {
			output.Dim.Printf("  %s  ", adv.Date)
		} else {
			fmt.Print("  ")
		}
		fmt.Println(adv.Title)
		if adv.URL != "" {
			output.Dim.Printf("    %s\n", adv.URL)
		}
	}
}
