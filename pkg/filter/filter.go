// Package filter decides whether a candidate image is large enough to
// download. Dimensions are read by decoding only the image header from a
// streamed response body, so a rejection does not cost a full download.
package filter

import (
	"image"
	"io"

	// Registered formats for image.DecodeConfig
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	errs "megascraper/pkg/errors"
	"megascraper/pkg/logger"
)

// Candidate is a dimension-checked image URL. Immutable once evaluated.
type Candidate struct {
	URL      string
	Width    int
	Height   int
	Format   string
	Accepted bool
	Err      error // set when dimensions could not be determined
}

// ImageOpener streams an image body for header decoding
type ImageOpener interface {
	OpenImage(rawURL string) (io.ReadCloser, error)
}

// Filter checks candidate images against minimum dimensions, caching the
// verdict per URL for the lifetime of the run.
type Filter struct {
	opener    ImageOpener
	minWidth  int
	minHeight int
	cache     map[string]*Candidate
	logger    logger.Logger
}

// New creates a dimension filter
func New(opener ImageOpener, minWidth, minHeight int, log logger.Logger) *Filter {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Filter{
		opener:    opener,
		minWidth:  minWidth,
		minHeight: minHeight,
		cache:     make(map[string]*Candidate),
		logger:    log,
	}
}

// Check evaluates a candidate URL, reusing the cached verdict on repeat
// calls. A candidate whose dimensions cannot be determined is rejected
// with Err set; the failure belongs to the caller's run summary.
func (f *Filter) Check(rawURL string) *Candidate {
	if cached, ok := f.cache[rawURL]; ok {
		return cached
	}

	cand := f.evaluate(rawURL)
	f.cache[rawURL] = cand
	return cand
}

// Checked returns the number of candidates evaluated so far
func (f *Filter) Checked() int {
	return len(f.cache)
}

func (f *Filter) evaluate(rawURL string) *Candidate {
	cand := &Candidate{URL: rawURL}

	body, err := f.opener.OpenImage(rawURL)
	if err != nil {
		cand.Err = err
		return cand
	}
	defer body.Close()

	cfg, format, err := image.DecodeConfig(body)
	if err != nil {
		cand.Err = errs.Wrap(errs.KindDimension, rawURL, err)
		f.logger.WarnWithFields("image dimensions undetermined", map[string]interface{}{
			"url":   rawURL,
			"error": err.Error(),
		})
		return cand
	}

	cand.Width = cfg.Width
	cand.Height = cfg.Height
	cand.Format = format
	cand.Accepted = cfg.Width >= f.minWidth && cfg.Height >= f.minHeight

	f.logger.DebugWithFields("image dimension check", map[string]interface{}{
		"url":      rawURL,
		"width":    cfg.Width,
		"height":   cfg.Height,
		"format":   format,
		"accepted": cand.Accepted,
	})

	return cand
}
