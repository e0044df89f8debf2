package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "megascraper/pkg/errors"
	"megascraper/pkg/web"
)

// fakeFetcher serves pages from a map and records fetch order
type fakeFetcher struct {
	pages   map[string]string
	fetched []string
}

func (f *fakeFetcher) FetchPage(rawURL string) (*web.Page, error) {
	f.fetched = append(f.fetched, rawURL)
	body, ok := f.pages[rawURL]
	if !ok {
		return nil, errs.New(errs.KindFetch, rawURL, "not found")
	}
	final, _ := url.Parse(rawURL)
	return &web.Page{Body: []byte(body), FinalURL: final}, nil
}

func page(links []string, images []string) string {
	html := "<html><body>"
	for _, l := range links {
		html += fmt.Sprintf(`<a href=%q>link</a>`, l)
	}
	for _, i := range images {
		html += fmt.Sprintf(`<img src=%q>`, i)
	}
	return html + "</body></html>"
}

func newTestCrawler(t *testing.T, fetcher *fakeFetcher, seed string, pagePattern *regexp.Regexp) (*Crawler, *State, *errs.Recorder) {
	t.Helper()
	seedURL, err := url.Parse(seed)
	require.NoError(t, err)
	state := NewState(seed)
	failures := errs.NewRecorder()
	return New(fetcher, seedURL, pagePattern, nil, state, failures, nil), state, failures
}

func TestCrawlBreadthFirst(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com/":  page([]string{"/a", "/b"}, []string{"/img/seed.jpg"}),
		"https://example.com/a": page([]string{"/c"}, []string{"/img/a.jpg"}),
		"https://example.com/b": page(nil, []string{"/img/b.jpg", "/img/a.jpg"}),
		"https://example.com/c": page(nil, []string{"/img/c.jpg"}),
	}}

	c, state, failures := newTestCrawler(t, fetcher, "https://example.com/", nil)
	visited := c.Crawl(0)

	assert.Equal(t, 4, visited)
	assert.Equal(t, []string{
		"https://example.com/",
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/c",
	}, fetcher.fetched, "pages must be visited level by level")

	// First-seen order, duplicate from /b dropped
	assert.Equal(t, []string{
		"https://example.com/img/seed.jpg",
		"https://example.com/img/a.jpg",
		"https://example.com/img/b.jpg",
		"https://example.com/img/c.jpg",
	}, state.Discovered())
	assert.Equal(t, 0, failures.Len())
}

func TestCrawlMaxPages(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com/":  page([]string{"/a", "/b"}, nil),
		"https://example.com/a": page(nil, nil),
		"https://example.com/b": page(nil, nil),
	}}

	c, state, _ := newTestCrawler(t, fetcher, "https://example.com/", nil)
	visited := c.Crawl(2)

	assert.Equal(t, 2, visited)
	assert.Equal(t, 2, state.VisitedCount())
	assert.Equal(t, 1, state.PendingCount(), "the unvisited page stays queued")
}

func TestCrawlResumesWithHigherCap(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com/":  page([]string{"/a", "/b"}, []string{"/1.jpg"}),
		"https://example.com/a": page(nil, []string{"/2.jpg"}),
		"https://example.com/b": page(nil, []string{"/3.jpg"}),
	}}

	c, state, _ := newTestCrawler(t, fetcher, "https://example.com/", nil)

	c.Crawl(1)
	firstRun := state.Discovered()

	c.Crawl(3)
	secondRun := state.Discovered()

	// The second call extends the first rather than restarting
	assert.Equal(t, 3, state.VisitedCount())
	assert.Equal(t, firstRun, secondRun[:len(firstRun)])
	assert.Len(t, secondRun, 3)
}

func TestCrawlFetchFailureDoesNotCountAsVisit(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com/":   page([]string{"/broken", "/ok"}, nil),
		"https://example.com/ok": page(nil, []string{"/img.jpg"}),
	}}

	c, state, failures := newTestCrawler(t, fetcher, "https://example.com/", nil)
	visited := c.Crawl(0)

	assert.Equal(t, 2, visited)
	assert.False(t, state.Visited("https://example.com/broken"))
	assert.Equal(t, 1, state.DiscoveredCount(), "the crawl continues past the failure")

	records := failures.Records()
	require.Len(t, records, 1)
	assert.Equal(t, errs.KindFetch, records[0].Kind)
	assert.Equal(t, "https://example.com/broken", records[0].URL)
}

func TestCrawlPagePatternGatesEnqueueing(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com/":          page([]string{"/archive/a", "/blog/b"}, []string{"/seed.jpg"}),
		"https://example.com/archive/a": page(nil, []string{"/a.jpg"}),
		"https://example.com/blog/b":    page(nil, []string{"/b.jpg"}),
	}}

	c, state, _ := newTestCrawler(t, fetcher, "https://example.com/", regexp.MustCompile(`/archive/`))
	c.Crawl(0)

	assert.True(t, state.Visited("https://example.com/archive/a"))
	assert.False(t, state.Visited("https://example.com/blog/b"))
	assert.Equal(t, []string{
		"https://example.com/seed.jpg",
		"https://example.com/a.jpg",
	}, state.Discovered())
}

func TestCrawlPagePatternMatchingNothingVisitsSeedOnly(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com/": page([]string{"/a", "/b"}, []string{"/seed.jpg"}),
	}}

	c, state, _ := newTestCrawler(t, fetcher, "https://example.com/", regexp.MustCompile(`/never/`))
	visited := c.Crawl(0)

	// The seed itself is exempt from the page pattern
	assert.Equal(t, 1, visited)
	assert.Equal(t, []string{"https://example.com/seed.jpg"}, state.Discovered())
}

func TestStateEnqueueDeduplicates(t *testing.T) {
	state := NewState("https://example.com/")
	state.enqueue("https://example.com/a")
	state.enqueue("https://example.com/a")

	assert.Equal(t, 2, state.PendingCount())

	next, ok := state.dequeue()
	require.True(t, ok)
	assert.Equal(t, "https://example.com/", next)
	state.markVisited(next)

	// A visited URL is never requeued
	state.enqueue("https://example.com/")
	assert.Equal(t, 1, state.PendingCount())
}
