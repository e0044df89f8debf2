package web

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"megascraper/pkg/config"
	errs "megascraper/pkg/errors"
	"megascraper/pkg/logger"
	"megascraper/pkg/ratelimit"
	"megascraper/pkg/retry"
)

// Page is a fetched HTML document. FinalURL reflects any redirects and is
// the base for resolving relative links.
type Page struct {
	Body     []byte
	FinalURL *url.URL
}

// Client fetches pages and images over HTTP. The client holds no
// per-request state; fetches are issued one at a time by the crawl loop.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	limiter    ratelimit.Limiter
	retryCfg   *retry.Config
	logger     logger.Logger
}

// NewClient creates an HTTP client from the fetch configuration
func NewClient(cfg *config.FetchConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	var limiter ratelimit.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = ratelimit.NewTokenBucket(cfg.RequestsPerMinute, time.Minute)
	} else {
		limiter = ratelimit.NewUnlimited()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		headers: map[string]string{
			"User-Agent":      cfg.UserAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
		limiter: limiter,
		retryCfg: &retry.Config{
			MaxAttempts: cfg.RetryAttempts,
			Backoff:     retry.DefaultExponentialBackoff(),
			RetryIf:     retry.DefaultRetryIf,
			Logger:      log,
		},
		logger: log,
	}
}

// SetHeader sets a custom header for all requests
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// Get performs a single GET request with the configured headers. The
// caller owns the response body.
func (c *Client) Get(rawURL string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errs.New(errs.KindFetch, rawURL, fmt.Sprintf("failed to create request: %v", err))
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	c.limiter.Wait()

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    rawURL,
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		kind := errs.KindFetch
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			kind = errs.KindTimeout
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":      rawURL,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Wrap(kind, rawURL, err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      rawURL,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// checkStatus maps a non-200 response to a classified error; the body is
// closed when the response is unusable
func checkStatus(resp *http.Response, rawURL string) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	resp.Body.Close()
	return &errs.Error{
		Kind:    errs.KindFetch,
		URL:     rawURL,
		Message: fmt.Sprintf("unexpected status: %s", resp.Status),
		Code:    resp.StatusCode,
	}
}

// FetchPage retrieves an HTML document, retrying transient failures
func (c *Client) FetchPage(rawURL string) (*Page, error) {
	return retry.DoWithResult(func() (*Page, error) {
		resp, err := c.Get(rawURL)
		if err != nil {
			return nil, err
		}
		if err := checkStatus(resp, rawURL); err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errs.Wrap(errs.KindFetch, rawURL, err)
		}

		return &Page{Body: body, FinalURL: resp.Request.URL}, nil
	}, c.retryCfg)
}

// FetchImage retrieves the full binary content of an image
func (c *Client) FetchImage(rawURL string) ([]byte, error) {
	return retry.DoWithResult(func() ([]byte, error) {
		resp, err := c.Get(rawURL)
		if err != nil {
			return nil, err
		}
		if err := checkStatus(resp, rawURL); err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errs.Wrap(errs.KindFetch, rawURL, err)
		}
		return data, nil
	}, c.retryCfg)
}

// OpenImage opens a streaming body for an image so the caller can decode
// just the header bytes. The caller must close the returned body. Not
// retried: a failed probe rejects the candidate rather than stalling the
// download walk.
func (c *Client) OpenImage(rawURL string) (io.ReadCloser, error) {
	resp, err := c.Get(rawURL)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, rawURL); err != nil {
		return nil, err
	}
	return resp.Body, nil
}
