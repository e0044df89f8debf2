package crawler

// State is the crawl state shared between scrape calls: where the
// traversal has been, where it still has to go, and which image URLs it
// has found. It is created once per run and only the crawler mutates it,
// so repeated Crawl calls extend the traversal instead of restarting it.
type State struct {
	visited    map[string]struct{}
	pending    []string
	enqueued   map[string]struct{}
	discovered []string
	seenImages map[string]struct{}
}

// NewState creates crawl state with the seed URL queued
func NewState(seed string) *State {
	s := &State{
		visited:    make(map[string]struct{}),
		enqueued:   make(map[string]struct{}),
		seenImages: make(map[string]struct{}),
	}
	s.enqueue(seed)
	return s
}

// enqueue appends a URL to the pending queue unless it was ever queued
// or visited before
func (s *State) enqueue(rawURL string) {
	if _, ok := s.enqueued[rawURL]; ok {
		return
	}
	if _, ok := s.visited[rawURL]; ok {
		return
	}
	s.enqueued[rawURL] = struct{}{}
	s.pending = append(s.pending, rawURL)
}

// dequeue pops the next pending URL in FIFO order
func (s *State) dequeue() (string, bool) {
	if len(s.pending) == 0 {
		return "", false
	}
	next := s.pending[0]
	s.pending = s.pending[1:]
	return next, true
}

// markVisited records a successfully fetched page
func (s *State) markVisited(rawURL string) {
	s.visited[rawURL] = struct{}{}
}

// addImage appends an image URL keeping first-seen order; duplicates
// across pages are dropped
func (s *State) addImage(rawURL string) bool {
	if _, ok := s.seenImages[rawURL]; ok {
		return false
	}
	s.seenImages[rawURL] = struct{}{}
	s.discovered = append(s.discovered, rawURL)
	return true
}

// VisitedCount returns the number of pages fetched so far
func (s *State) VisitedCount() int {
	return len(s.visited)
}

// Visited reports whether a page URL has been fetched
func (s *State) Visited(rawURL string) bool {
	_, ok := s.visited[rawURL]
	return ok
}

// PendingCount returns the number of queued, unvisited page URLs
func (s *State) PendingCount() int {
	return len(s.pending)
}

// Discovered returns a copy of the image URLs in discovery order
func (s *State) Discovered() []string {
	out := make([]string, len(s.discovered))
	copy(out, s.discovered)
	return out
}

// DiscoveredCount returns the number of distinct image URLs found
func (s *State) DiscoveredCount() int {
	return len(s.discovered)
}
