package scraper

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"megascraper/internal/downloader"
	"megascraper/pkg/config"
	errs "megascraper/pkg/errors"
)

// mockSite serves a small crawlable website with real encoded images
type mockSite struct {
	server     *httptest.Server
	imageCalls int32
}

func newMockSite(t *testing.T) *mockSite {
	t.Helper()
	m := &mockSite{}

	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body>
			<a href="/gallery/a.html">a</a>
			<a href="/gallery/b.html">b</a>
			<img src="/img/large1.png">
		</body></html>`)
	})
	mux.HandleFunc("/gallery/a.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<img src="/img/large2.png">
			<img src="/img/small.png">
		</body></html>`)
	})
	mux.HandleFunc("/gallery/b.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<img src="/img/large3.png">
			<img src="/img/large1.png">
		</body></html>`)
	})

	serveImage := func(width, height int) http.HandlerFunc {
		var buf bytes.Buffer
		if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
			t.Fatalf("Failed to encode test image: %v", err)
		}
		data := buf.Bytes()
		return func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&m.imageCalls, 1)
			w.Header().Set("Content-Type", "image/png")
			w.Write(data)
		}
	}

	mux.HandleFunc("/img/large1.png", serveImage(800, 600))
	mux.HandleFunc("/img/large2.png", serveImage(1024, 768))
	mux.HandleFunc("/img/large3.png", serveImage(900, 700))
	mux.HandleFunc("/img/small.png", serveImage(100, 80))

	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func testConfig(t *testing.T, seed string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Seed = seed
	cfg.Output.Folder = t.TempDir()
	cfg.Fetch.RetryAttempts = 1
	return cfg
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig() // no seed

	_, err := New(cfg)
	require.Error(t, err)

	var classified *errs.Error
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, errs.KindConfig, classified.Kind)
}

func TestScrapeAndDownload(t *testing.T) {
	site := newMockSite(t)
	cfg := testConfig(t, site.server.URL+"/")
	cfg.Filter.MinWidth = 640
	cfg.Filter.MinHeight = 480

	s, err := New(cfg)
	require.NoError(t, err)

	scrape := s.Scrape(0)
	assert.Equal(t, 3, scrape.PagesVisited)
	assert.Equal(t, 4, scrape.ImagesDiscovered, "duplicate image on /gallery/b.html must not count twice")
	assert.Empty(t, scrape.Failures)

	var progressed int
	s.SetProgress(func(res downloader.Result) {
		progressed++
	})

	download := s.Download(0)
	assert.Equal(t, 3, download.Downloaded)
	assert.Equal(t, 1, download.Rejected)
	assert.Equal(t, 0, download.Shortfall, "unbounded requests report no shortfall")
	assert.Empty(t, download.Failures)
	assert.Equal(t, 3, progressed)

	entries, err := os.ReadDir(cfg.Output.Folder)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, ".png", filepath.Ext(e.Name()))
	}
}

func TestDownloadHowManyCapsSuccesses(t *testing.T) {
	site := newMockSite(t)
	cfg := testConfig(t, site.server.URL+"/")

	s, err := New(cfg)
	require.NoError(t, err)

	s.Scrape(0)
	download := s.Download(2)

	assert.Equal(t, 2, download.Downloaded)
	assert.Equal(t, 0, download.Shortfall)

	entries, err := os.ReadDir(cfg.Output.Folder)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDownloadShortfallIsReportedNotFatal(t *testing.T) {
	site := newMockSite(t)
	cfg := testConfig(t, site.server.URL+"/")
	cfg.Filter.MinWidth = 9999

	s, err := New(cfg)
	require.NoError(t, err)

	s.Scrape(0)
	download := s.Download(10)

	// Nothing qualifies: no downloads, no failures, just a shortfall
	assert.Equal(t, 0, download.Downloaded)
	assert.Equal(t, 4, download.Rejected)
	assert.Equal(t, 10, download.Shortfall)
	assert.Empty(t, download.Failures)

	entries, err := os.ReadDir(cfg.Output.Folder)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownloadResumesAcrossCalls(t *testing.T) {
	site := newMockSite(t)
	cfg := testConfig(t, site.server.URL+"/")
	cfg.Output.Naming = config.NamingNumerical

	s, err := New(cfg)
	require.NoError(t, err)

	s.Scrape(0)

	first := s.Download(2)
	assert.Equal(t, 2, first.Downloaded)

	second := s.Download(2)
	assert.Equal(t, 2, second.Downloaded, "second call continues past images already taken")

	third := s.Download(2)
	assert.Equal(t, 0, third.Downloaded, "candidates are exhausted")
	assert.Equal(t, 2, third.Shortfall)

	// Numbering continues across calls
	for _, name := range []string{"1.png", "2.png", "3.png", "4.png"} {
		_, err := os.Stat(filepath.Join(cfg.Output.Folder, name))
		assert.NoError(t, err, "expected %s on disk", name)
	}
}

func TestScrapeMaxPagesAndResume(t *testing.T) {
	site := newMockSite(t)
	cfg := testConfig(t, site.server.URL+"/")

	s, err := New(cfg)
	require.NoError(t, err)

	first := s.Scrape(1)
	assert.Equal(t, 1, first.PagesVisited)
	assert.Equal(t, 1, first.NewPages)
	assert.Equal(t, 2, first.PendingPages)

	second := s.Scrape(3)
	assert.Equal(t, 3, second.PagesVisited, "second call extends the first crawl")
	assert.Equal(t, 2, second.NewPages)
	assert.Equal(t, 4, second.ImagesDiscovered)
}

func TestRunContinuesPastBrokenImage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<img src="/img/broken.png">
			<img src="/img/good.png">
		</body></html>`)
	})
	mux.HandleFunc("/img/broken.png", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/img/good.png", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 10)))
		w.Write(buf.Bytes())
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := testConfig(t, server.URL+"/")

	s, err := New(cfg)
	require.NoError(t, err)

	s.Scrape(0)
	download := s.Download(0)

	assert.Equal(t, 1, download.Downloaded, "the good image survives the broken one")
	require.Len(t, download.Failures, 1)
	assert.Equal(t, server.URL+"/img/broken.png", download.Failures[0].URL)

	counts := s.FailureCounts()
	assert.Equal(t, 1, counts[errs.KindFetch])
}

func TestGroupedNumericalLayout(t *testing.T) {
	site := newMockSite(t)
	cfg := testConfig(t, site.server.URL+"/")
	cfg.Output.Structure = config.StructureGrouped
	cfg.Output.Naming = config.NamingNumerical
	cfg.Output.ImagesPerFolder = 2
	cfg.Output.FolderInitialNum = 5

	s, err := New(cfg)
	require.NoError(t, err)

	s.Scrape(0)
	download := s.Download(0)
	require.Equal(t, 4, download.Downloaded)

	wants := []string{
		filepath.Join("0005", "1.png"),
		filepath.Join("0005", "2.png"),
		filepath.Join("0006", "3.png"),
		filepath.Join("0006", "4.png"),
	}
	for _, rel := range wants {
		_, err := os.Stat(filepath.Join(cfg.Output.Folder, rel))
		assert.NoError(t, err, "expected %s on disk", rel)
	}
}
