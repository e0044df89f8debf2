package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"megascraper/internal/downloader"
	"megascraper/pkg/config"
	"megascraper/pkg/logger"
	"megascraper/pkg/scraper"
	"megascraper/pkg/ui"
)

var (
	// Scrape command flags
	regexPages       string
	regexImages      string
	minWidth         int
	minHeight        int
	outputDir        string
	outputStructure  string
	outputNaming     string
	imagesPerFolder  int
	folderInitialNum int
	maxPages         int
	howMany          int
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape <seed-url>",
	Short: "Crawl a website and download its images",
	Long: `Crawl a website breadth-first from the seed URL, then download the
images that pass the dimension filter into the output folder.

The crawl and the download are two phases: the first visits up to
--max-pages pages and collects candidate image URLs, the second
dimension-checks candidates in discovery order and downloads up to
--how-many of the ones that qualify.`,
	Example: `  # Grab everything reachable from the seed
  megascraper scrape https://example.com/gallery/

  # Two pages deep into the archive, ten images, at least 800x600
  megascraper scrape https://example.com/ -r '/archive/' --max-pages 2 --how-many 10 \
    --min-width 800 --min-height 600

  # Grouped output: 100 images per numbered folder starting at 0001
  megascraper scrape https://example.com/ --structure grouped --images-per-folder 100`,
	Args: cobra.ExactArgs(1),
	Run:  runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVarP(&regexPages, "regex-pages", "r", "", "only follow page URLs matching this regex")
	scrapeCmd.Flags().StringVarP(&regexImages, "regex-images", "i", "", "only collect image URLs matching this regex")
	scrapeCmd.Flags().IntVar(&minWidth, "min-width", 0, "minimum image width in pixels")
	scrapeCmd.Flags().IntVar(&minHeight, "min-height", 0, "minimum image height in pixels")
	scrapeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output folder (default ./output)")
	scrapeCmd.Flags().StringVar(&outputStructure, "structure", "", "output structure: flat or grouped")
	scrapeCmd.Flags().StringVar(&outputNaming, "naming", "", "output naming: keep or numerical")
	scrapeCmd.Flags().IntVar(&imagesPerFolder, "images-per-folder", 0, "images per numbered folder (grouped structure)")
	scrapeCmd.Flags().IntVar(&folderInitialNum, "folder-initial-num", 0, "number of the first folder (grouped structure)")
	scrapeCmd.Flags().IntVarP(&maxPages, "max-pages", "m", 0, "maximum pages to visit (0 = unbounded)")
	scrapeCmd.Flags().IntVarP(&howMany, "how-many", "n", 0, "maximum images to download (0 = unbounded)")
}

func runScrape(cmd *cobra.Command, args []string) {
	seed := strings.TrimSpace(args[0])

	flags := map[string]interface{}{
		"seed": seed,
	}
	if regexPages != "" {
		flags["regex-pages"] = regexPages
	}
	if regexImages != "" {
		flags["regex-images"] = regexImages
	}
	if minWidth > 0 {
		flags["min-width"] = minWidth
	}
	if minHeight > 0 {
		flags["min-height"] = minHeight
	}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if outputStructure != "" {
		flags["structure"] = outputStructure
	}
	if outputNaming != "" {
		flags["naming"] = outputNaming
	}
	if imagesPerFolder > 0 {
		flags["images-per-folder"] = imagesPerFolder
	}
	if folderInitialNum > 0 {
		flags["folder-initial-num"] = folderInitialNum
	}
	if maxPages > 0 {
		flags["max-pages"] = maxPages
	}
	if howMany > 0 {
		flags["how-many"] = howMany
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Invalid configuration", err.Error())
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}

	ui.PrintInfo("Seed", cfg.Seed)
	ui.PrintInfo("Output", cfg.Output.Folder)

	s, err := scraper.New(cfg)
	if err != nil {
		ui.PrintError("Failed to initialize scraper", err.Error())
		os.Exit(1)
	}

	scrapeSummary := s.Scrape(cfg.Crawl.MaxPages)
	ui.PrintInfo("Pages visited", fmt.Sprintf("%d", scrapeSummary.PagesVisited))
	ui.PrintInfo("Images discovered", fmt.Sprintf("%d", scrapeSummary.ImagesDiscovered))

	barTotal := cfg.Crawl.HowMany
	if barTotal <= 0 {
		barTotal = -1
	}
	bar := ui.NewDownloadBar(barTotal)
	s.SetProgress(func(res downloader.Result) {
		if res.Success {
			bar.Add(1)
		}
	})

	downloadSummary := s.Download(cfg.Crawl.HowMany)
	bar.Finish()

	printSummary(scrapeSummary, downloadSummary, s)
}

// printSummary prints the end-of-run report
func printSummary(scrape scraper.ScrapeSummary, download scraper.DownloadSummary, s *scraper.MegaScraper) {
	fmt.Println()
	ui.PrintSuccess(fmt.Sprintf("Downloaded %d image(s)", download.Downloaded))
	if download.Rejected > 0 {
		ui.PrintInfo("Rejected by size", fmt.Sprintf("%d", download.Rejected))
	}
	if download.Shortfall > 0 {
		ui.PrintWarning(fmt.Sprintf("Only %d of %d requested images qualified", download.Downloaded, download.Requested))
	}

	counts := s.FailureCounts()
	if len(counts) == 0 {
		return
	}
	ui.PrintWarning("Failures")
	for kind, count := range counts {
		fmt.Printf("  %s: %d\n", ui.Dim(string(kind)), count)
	}
	for _, rec := range append(scrape.Failures, download.Failures...) {
		fmt.Printf("  %s %s\n", ui.Dim("["+string(rec.Kind)+"]"), rec.URL)
	}
}
