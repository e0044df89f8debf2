// Package crawler implements the breadth-first page traversal that feeds
// the image collector.
package crawler

import (
	"net/url"
	"regexp"

	errs "megascraper/pkg/errors"
	"megascraper/pkg/extract"
	"megascraper/pkg/logger"
	"megascraper/pkg/web"
)

// PageFetcher retrieves an HTML document
type PageFetcher interface {
	FetchPage(rawURL string) (*web.Page, error)
}

// Crawler walks a site breadth-first from the seed, collecting image URLs
// from every visited page and enqueueing links that match the page
// pattern. Traversal is sequential: one fetch in flight at a time.
type Crawler struct {
	fetcher      PageFetcher
	site         string // seed host, the same-site boundary
	pagePattern  *regexp.Regexp
	imagePattern *regexp.Regexp
	state        *State
	failures     *errs.Recorder
	logger       logger.Logger
}

// New creates a crawler over the given state. Patterns may be nil to
// match everything.
func New(fetcher PageFetcher, seed *url.URL, pagePattern, imagePattern *regexp.Regexp, state *State, failures *errs.Recorder, log logger.Logger) *Crawler {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Crawler{
		fetcher:      fetcher,
		site:         seed.Host,
		pagePattern:  pagePattern,
		imagePattern: imagePattern,
		state:        state,
		failures:     failures,
		logger:       log,
	}
}

// Crawl visits pending pages breadth-first until the total visited count
// reaches maxPages or the queue drains. maxPages <= 0 means unbounded.
// Fetch failures are recorded and do not count as visits. Returns the
// number of pages visited by this call.
func (c *Crawler) Crawl(maxPages int) int {
	visitedBefore := c.state.VisitedCount()

	for {
		if maxPages > 0 && c.state.VisitedCount() >= maxPages {
			c.logger.InfoWithFields("page cap reached", map[string]interface{}{
				"visited": c.state.VisitedCount(),
				"pending": c.state.PendingCount(),
			})
			break
		}

		pageURL, ok := c.state.dequeue()
		if !ok {
			break
		}
		if c.state.Visited(pageURL) {
			continue
		}

		page, err := c.fetcher.FetchPage(pageURL)
		if err != nil {
			c.failures.Add(errs.KindFetch, pageURL, err)
			c.logger.WarnWithFields("page fetch failed", map[string]interface{}{
				"url":   pageURL,
				"error": err.Error(),
			})
			continue
		}

		c.state.markVisited(pageURL)
		c.processPage(pageURL, page)
	}

	return c.state.VisitedCount() - visitedBefore
}

// processPage extracts images and follow-up links from a fetched page
func (c *Crawler) processPage(pageURL string, page *web.Page) {
	doc, err := extract.Parse(page.Body, pageURL)
	if err != nil {
		c.failures.Add(errs.KindParse, pageURL, err)
		c.logger.WarnWithFields("page parse failed", map[string]interface{}{
			"url":   pageURL,
			"error": err.Error(),
		})
		return
	}

	newImages := 0
	for _, img := range extract.Images(doc, page.FinalURL, c.imagePattern) {
		if c.state.addImage(img) {
			newImages++
		}
	}

	links := extract.Links(doc, page.FinalURL, c.site, c.pagePattern)
	for _, link := range links {
		c.state.enqueue(link)
	}

	c.logger.DebugWithFields("page processed", map[string]interface{}{
		"url":        pageURL,
		"new_images": newImages,
		"links":      len(links),
		"pending":    c.state.PendingCount(),
	})
}
