package scraper

import (
	"fmt"
	"net/url"

	"megascraper/internal/downloader"
	"megascraper/pkg/config"
	"megascraper/pkg/crawler"
	errs "megascraper/pkg/errors"
	"megascraper/pkg/filter"
	"megascraper/pkg/layout"
	"megascraper/pkg/logger"
	"megascraper/pkg/storage"
	"megascraper/pkg/web"
)

// ScrapeSummary reports the outcome of a Scrape call. Totals are
// cumulative across calls; NewPages counts only this call.
type ScrapeSummary struct {
	PagesVisited     int
	NewPages         int
	PendingPages     int
	ImagesDiscovered int
	Failures         []errs.Record
}

// DownloadSummary reports the outcome of a Download call. Shortfall is
// how many of the requested images could not be satisfied because the
// qualifying candidates ran out; it is zero for an unbounded request.
type DownloadSummary struct {
	Requested  int
	Downloaded int
	Rejected   int
	Shortfall  int
	Failures   []errs.Record
}

// ProgressFunc observes each finished download item
type ProgressFunc func(downloader.Result)

// MegaScraper drives the two-phase run: Scrape accumulates image URLs by
// crawling pages, Download filters and persists them. Both phases share
// the crawl state, so either can be invoked repeatedly and the run picks
// up where it left off.
type MegaScraper struct {
	cfg       *config.Config
	client    *web.Client
	state     *crawler.State
	crawler   *crawler.Crawler
	filter    *filter.Filter
	planner   *layout.Planner
	store     *storage.Manager
	engine    *downloader.Engine
	failures  *errs.Recorder
	attempted map[string]struct{} // image URLs whose plan was consumed
	seq       int                 // 1-based index of the next planned image
	progress  ProgressFunc
	logger    logger.Logger
}

// New builds a scraper from a validated configuration. Configuration
// problems are fatal here, before any network activity.
func New(cfg *config.Config) (*MegaScraper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errs.Wrap(errs.KindConfig, "", err)
	}

	seed, err := url.Parse(cfg.Seed)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfig, cfg.Seed, fmt.Errorf("invalid seed URL: %w", err))
	}

	log := logger.GetLogger()
	client := web.NewClient(&cfg.Fetch, log)

	store, err := storage.NewManager(cfg.Output.Folder)
	if err != nil {
		return nil, err
	}

	failures := errs.NewRecorder()
	state := crawler.NewState(cfg.Seed)

	return &MegaScraper{
		cfg:       cfg,
		client:    client,
		state:     state,
		crawler:   crawler.New(client, seed, cfg.PagePattern(), cfg.ImagePattern(), state, failures, log),
		filter:    filter.New(client, cfg.Filter.MinWidth, cfg.Filter.MinHeight, log),
		planner:   layout.New(&cfg.Output, store.Exists),
		store:     store,
		engine:    downloader.NewEngine(client, store, log),
		failures:  failures,
		attempted: make(map[string]struct{}),
		logger:    log,
	}, nil
}

// SetProgress installs a callback invoked after every download attempt
func (s *MegaScraper) SetProgress(fn ProgressFunc) {
	s.progress = fn
}

// Scrape crawls up to maxPages pages in total (<= 0 for unbounded),
// extending the state accumulated by earlier calls.
func (s *MegaScraper) Scrape(maxPages int) ScrapeSummary {
	mark := s.failures.Len()

	s.logger.InfoWithFields("scrape phase starting", map[string]interface{}{
		"seed":      s.cfg.Seed,
		"max_pages": maxPages,
	})

	newPages := s.crawler.Crawl(maxPages)

	summary := ScrapeSummary{
		PagesVisited:     s.state.VisitedCount(),
		NewPages:         newPages,
		PendingPages:     s.state.PendingCount(),
		ImagesDiscovered: s.state.DiscoveredCount(),
		Failures:         s.failures.Since(mark),
	}

	s.logger.InfoWithFields("scrape phase complete", map[string]interface{}{
		"pages_visited":     summary.PagesVisited,
		"images_discovered": summary.ImagesDiscovered,
		"failures":          len(summary.Failures),
	})

	return summary
}

// Download walks the discovered image URLs in discovery order, dimension-
// checks each, and downloads accepted candidates until howMany succeed
// (<= 0 for unbounded) or candidates run out. A shortfall is reported in
// the summary, not returned as an error.
func (s *MegaScraper) Download(howMany int) DownloadSummary {
	mark := s.failures.Len()
	summary := DownloadSummary{Requested: howMany}

	s.logger.InfoWithFields("download phase starting", map[string]interface{}{
		"how_many":   howMany,
		"candidates": s.state.DiscoveredCount(),
	})

	for _, imgURL := range s.state.Discovered() {
		if howMany > 0 && summary.Downloaded >= howMany {
			break
		}
		if _, done := s.attempted[imgURL]; done {
			continue
		}

		cand := s.filter.Check(imgURL)
		if cand.Err != nil {
			s.failures.Add(errs.KindDimension, imgURL, cand.Err)
			s.attempted[imgURL] = struct{}{}
			continue
		}
		if !cand.Accepted {
			s.logger.DebugWithFields("image rejected by size", map[string]interface{}{
				"url":    imgURL,
				"width":  cand.Width,
				"height": cand.Height,
			})
			summary.Rejected++
			s.attempted[imgURL] = struct{}{}
			continue
		}

		s.seq++
		dest, err := s.planner.Plan(s.seq, imgURL)
		if err != nil {
			s.failures.Add(errs.KindWrite, imgURL, err)
			s.attempted[imgURL] = struct{}{}
			continue
		}

		result := s.engine.Run(downloader.Plan{URL: imgURL, Path: dest, Seq: s.seq})
		s.attempted[imgURL] = struct{}{}
		if s.progress != nil {
			s.progress(result)
		}

		if result.Success {
			summary.Downloaded++
		} else {
			s.failures.Add(errs.KindFetch, imgURL, result.Error)
		}
	}

	if howMany > 0 && summary.Downloaded < howMany {
		summary.Shortfall = howMany - summary.Downloaded
	}
	summary.Failures = s.failures.Since(mark)

	s.logger.InfoWithFields("download phase complete", map[string]interface{}{
		"downloaded": summary.Downloaded,
		"rejected":   summary.Rejected,
		"shortfall":  summary.Shortfall,
		"failures":   len(summary.Failures),
	})

	return summary
}

// State exposes the crawl state for inspection
func (s *MegaScraper) State() *crawler.State {
	return s.state
}

// FailureCounts tallies all failures recorded so far by kind
func (s *MegaScraper) FailureCounts() map[errs.Kind]int {
	return s.failures.CountByKind()
}
