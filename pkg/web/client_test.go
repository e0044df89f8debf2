package web

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"megascraper/pkg/config"
	errs "megascraper/pkg/errors"
	"megascraper/pkg/retry"
)

func testClient(timeout time.Duration, attempts int) *Client {
	c := NewClient(&config.FetchConfig{
		Timeout:       timeout,
		UserAgent:     "megascraper-test",
		RetryAttempts: attempts,
	}, nil)
	// Keep retried tests fast
	c.retryCfg.Backoff = &retry.ConstantBackoff{Delay: time.Millisecond}
	return c
}

func TestFetchPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "megascraper-test", r.Header.Get("User-Agent"))
		fmt.Fprint(w, "<html><body>hello</body></html>")
	}))
	defer server.Close()

	client := testClient(5*time.Second, 1)
	page, err := client.FetchPage(server.URL + "/index.html")

	require.NoError(t, err)
	assert.Contains(t, string(page.Body), "hello")
	assert.Equal(t, server.URL+"/index.html", page.FinalURL.String())
}

func TestFetchPageFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html></html>")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(5*time.Second, 1)
	page, err := client.FetchPage(server.URL + "/old")

	require.NoError(t, err)
	assert.Equal(t, server.URL+"/new", page.FinalURL.String(), "FinalURL must reflect the redirect target")
}

func TestFetchPageNotFoundIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := testClient(5*time.Second, 3)
	_, err := client.FetchPage(server.URL + "/missing")

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "a 404 is permanent")

	var classified *errs.Error
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, errs.KindFetch, classified.Kind)
	assert.Equal(t, http.StatusNotFound, classified.Code)
}

func TestFetchPageRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "<html></html>")
	}))
	defer server.Close()

	client := testClient(5*time.Second, 5)
	page, err := client.FetchPage(server.URL + "/flaky")

	require.NoError(t, err)
	assert.NotNil(t, page)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchPageTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := testClient(20*time.Millisecond, 1)
	_, err := client.FetchPage(server.URL + "/slow")

	require.Error(t, err)

	var classified *errs.Error
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, errs.KindTimeout, classified.Kind)
}

func TestFetchImage(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(payload)
	}))
	defer server.Close()

	client := testClient(5*time.Second, 1)
	data, err := client.FetchImage(server.URL + "/photo.jpg")

	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestOpenImageStreamsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "streamed image bytes")
	}))
	defer server.Close()

	client := testClient(5*time.Second, 1)
	body, err := client.OpenImage(server.URL + "/photo.jpg")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "streamed image bytes", string(data))
}

func TestSetHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://example.com/", r.Header.Get("Referer"))
	}))
	defer server.Close()

	client := testClient(5*time.Second, 1)
	client.SetHeader("Referer", "https://example.com/")

	resp, err := client.Get(server.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
}
