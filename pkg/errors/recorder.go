package errors

import "errors"

// Record is a single failure kept for the end-of-run summary
type Record struct {
	Kind    Kind
	URL     string
	Message string
}

// Recorder accumulates non-fatal failures in the order they happened.
// A run keeps one recorder; per-page and per-image failures are appended
// to it instead of aborting the run.
type Recorder struct {
	records []Record
}

// NewRecorder creates an empty failure recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Add records a failure from a classified error. Unclassified errors are
// recorded with the given fallback kind.
func (r *Recorder) Add(fallback Kind, url string, err error) {
	if err == nil {
		return
	}
	var classified *Error
	if errors.As(err, &classified) {
		target := classified.URL
		if target == "" {
			target = url
		}
		r.records = append(r.records, Record{Kind: classified.Kind, URL: target, Message: classified.Message})
		return
	}
	r.records = append(r.records, Record{Kind: fallback, URL: url, Message: err.Error()})
}

// Len returns the number of recorded failures
func (r *Recorder) Len() int {
	return len(r.records)
}

// Since returns a copy of the failures recorded after the given mark,
// where mark is a previous Len() value.
func (r *Recorder) Since(mark int) []Record {
	if mark < 0 || mark > len(r.records) {
		return nil
	}
	out := make([]Record, len(r.records)-mark)
	copy(out, r.records[mark:])
	return out
}

// Records returns a copy of all recorded failures
func (r *Recorder) Records() []Record {
	return r.Since(0)
}

// CountByKind tallies recorded failures per kind
func (r *Recorder) CountByKind() map[Kind]int {
	counts := make(map[Kind]int)
	for _, rec := range r.records {
		counts[rec.Kind]++
	}
	return counts
}
