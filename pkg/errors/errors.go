package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure that occurred during a scrape or download run
type Kind string

const (
	KindFetch     Kind = "fetch"
	KindTimeout   Kind = "fetch_timeout"
	KindParse     Kind = "parse"
	KindDimension Kind = "dimension_undetermined"
	KindWrite     Kind = "write"
	KindConfig    Kind = "configuration"
)

// Error is a classified failure tied to the URL (or path) it occurred on
type Error struct {
	Kind    Kind
	URL     string
	Message string
	Code    int // HTTP status code when relevant, 0 otherwise
	Cause   error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (status %d) [%s]: %s", e.Kind, e.Code, e.URL, e.Message)
	}
	if e.URL != "" {
		return fmt.Sprintf("%s error [%s]: %s", e.Kind, e.URL, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a classified error without an underlying cause
func New(kind Kind, url, message string) *Error {
	return &Error{Kind: kind, URL: url, Message: message}
}

// Wrap creates a classified error around an underlying cause
func Wrap(kind Kind, url string, cause error) *Error {
	return &Error{Kind: kind, URL: url, Message: cause.Error(), Cause: cause}
}

// IsRetryable checks if an error kind is worth retrying
func IsRetryable(kind Kind) bool {
	switch kind {
	case KindFetch, KindTimeout:
		return true
	default:
		return false
	}
}

// IsRetryableError reports whether a classified error is worth retrying.
// A fetch error carrying a status code defers to the status code, so 404s
// and other permanent client errors are not retried.
func IsRetryableError(err error) bool {
	var classified *Error
	if !errors.As(err, &classified) {
		return false
	}
	if classified.Code != 0 {
		return IsRetryableStatusCode(classified.Code)
	}
	return IsRetryable(classified.Kind)
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable failure
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Transport error
		return true
	case 429: // Too Many Requests
		return true
	case 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500
	}
}
