// Package scraper provides the core functionality for crawling a website
// and downloading its images.
//
// The scraper package orchestrates the entire run, coordinating between
// the web client, the crawler, the dimension filter, the output planner
// and the storage layer.
//
// Architecture:
//
// The MegaScraper struct is the main component that:
//   - Crawls pages breadth-first from the seed URL
//   - Collects candidate image URLs in discovery order
//   - Filters candidates by minimum pixel dimensions
//   - Plans destination paths (flat or grouped, keep or numerical naming)
//   - Downloads accepted images with atomic writes
//   - Records per-item failures without aborting the run
//
// Usage:
//
//	cfg := config.DefaultConfig()
//	cfg.Seed = "https://example.com/gallery/"
//	cfg.Filter.MinWidth = 800
//
//	s, err := scraper.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	s.Scrape(10)      // visit up to 10 pages
//	s.Download(25)    // download up to 25 qualifying images
//
// Scrape and Download are separate phases sharing accumulated state:
// calling Scrape again continues the crawl from the pending frontier,
// and calling Download again picks up after the images already
// attempted. Failures never stop a run; they are recorded and reported
// in the phase summaries.
package scraper
