// Package extract pulls link and image URLs out of HTML documents.
//
// The extractors are pure: they take a parsed document, the URL it was
// fetched from, and an optional compiled pattern, and return ordered,
// de-duplicated absolute URLs. They touch neither the network nor the
// disk, which keeps them unit-testable against fixture HTML.
package extract

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	errs "megascraper/pkg/errors"
)

// Parse builds a queryable document from raw page bytes. Content goquery
// cannot make sense of yields a parse error; the caller records it and
// moves on rather than aborting the crawl.
func Parse(body []byte, pageURL string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, errs.Wrap(errs.KindParse, pageURL, err)
	}
	return doc, nil
}

// Links returns the same-site anchor targets in document order, resolved
// against base, matching pattern. Same-site means the host equals site,
// the seed's host. A nil pattern matches every link.
func Links(doc *goquery.Document, base *url.URL, site string, pattern *regexp.Regexp) []string {
	if doc == nil || base == nil {
		return nil
	}

	var links []string
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}

		resolved := resolve(base, href)
		if resolved == nil {
			return
		}
		if resolved.Host != site {
			return
		}

		abs := resolved.String()
		if pattern != nil && !pattern.MatchString(abs) {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	})

	return links
}

// Images returns the image sources in document order, resolved against
// base, matching pattern. GIFs and data URIs are skipped. A nil pattern
// matches every source.
func Images(doc *goquery.Document, base *url.URL, pattern *regexp.Regexp) []string {
	if doc == nil || base == nil {
		return nil
	}

	var images []string
	seen := make(map[string]struct{})

	doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || src == "" {
			return
		}
		if strings.HasPrefix(src, "data:") {
			return
		}

		resolved := resolve(base, src)
		if resolved == nil {
			return
		}
		if strings.HasSuffix(strings.ToLower(resolved.Path), ".gif") {
			return
		}

		abs := resolved.String()
		if pattern != nil && !pattern.MatchString(abs) {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		images = append(images, abs)
	})

	return images
}

// resolve makes ref absolute against base, dropping fragments and
// anything that is not plain http(s)
func resolve(base *url.URL, ref string) *url.URL {
	u, err := base.Parse(ref)
	if err != nil {
		return nil
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil
	}
	u.Fragment = ""
	return u
}
