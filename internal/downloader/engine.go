package downloader

import (
	"bytes"
	"io"
	"time"

	"megascraper/pkg/logger"
)

// Plan is a single download: an accepted image URL and the destination
// path the layout planner assigned to it. Consumed once.
type Plan struct {
	URL  string
	Path string
	Seq  int
}

// Result reports the outcome of one download
type Result struct {
	Plan     Plan
	Success  bool
	Error    error
	Size     int
	Duration time.Duration
}

// ImageFetcher retrieves the binary content of an image
type ImageFetcher interface {
	FetchImage(rawURL string) ([]byte, error)
}

// Store persists the fetched bytes at the destination path
type Store interface {
	Save(r io.Reader, dest string) error
}

// Engine executes download plans one at a time. A failed item is reported
// in its result and never aborts the download phase.
type Engine struct {
	fetcher ImageFetcher
	store   Store
	logger  logger.Logger
}

// NewEngine creates a sequential download engine
func NewEngine(fetcher ImageFetcher, store Store, log logger.Logger) *Engine {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Engine{
		fetcher: fetcher,
		store:   store,
		logger:  log,
	}
}

// Run fetches and stores a single planned download
func (e *Engine) Run(p Plan) Result {
	start := time.Now()
	result := Result{Plan: p}

	data, err := e.fetcher.FetchImage(p.URL)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		e.logger.WarnWithFields("image download failed", map[string]interface{}{
			"url":   p.URL,
			"error": err.Error(),
		})
		return result
	}

	if err := e.store.Save(bytes.NewReader(data), p.Path); err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		e.logger.WarnWithFields("image write failed", map[string]interface{}{
			"url":   p.URL,
			"path":  p.Path,
			"error": err.Error(),
		})
		return result
	}

	result.Success = true
	result.Size = len(data)
	result.Duration = time.Since(start)

	e.logger.InfoWithFields("image downloaded", map[string]interface{}{
		"url":  p.URL,
		"path": p.Path,
		"size": result.Size,
	})

	return result
}
