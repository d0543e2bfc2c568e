// Package extractor pulls ordered, de-duplicated image references out of
// page HTML.
package extractor

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/models"
)

// lazyAttrs hold the real image URL on lazily-loaded elements; when present
// they win over src, which may be a placeholder.
var lazyAttrs = []string{"data-src", "data-lazy-src", "data-original"}

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

var resizeStylePath = regexp.MustCompile(`/styles/[^/]+/public/`)

// ExtractImages walks img elements in document order (including those inside
// noscript blocks), resolves their URLs against base, and returns
// de-duplicated references with dense indices from 0. Malformed HTML yields
// an empty slice.
func ExtractImages(html string, base *url.URL) []models.ImageReference {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var refs []models.ImageReference

	collect := func(s *goquery.Selection) {
		src, lazy := imageSource(s)
		if src == "" {
			return
		}

		resolved := resolve(base, src)
		if resolved == "" {
			return
		}

		cleaned := CleanImageURL(resolved)
		if !looksLikeImage(cleaned, lazy) {
			return
		}
		if seen[cleaned] {
			return
		}
		seen[cleaned] = true

		refs = append(refs, models.ImageReference{
			Index: len(refs),
			URL:   cleaned,
		})
	}

	// noscript contents parse as raw text, so fallback images inside them
	// need a second parse of the inner markup. Walking both node types in
	// one pass keeps document order.
	doc.Find("img, noscript").Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "noscript" {
			inner, err := goquery.NewDocumentFromReader(strings.NewReader(s.Text()))
			if err != nil {
				return
			}
			inner.Find("img").Each(func(_ int, is *goquery.Selection) {
				collect(is)
			})
			return
		}
		collect(s)
	})

	return refs
}

// ExtractTitle returns the trimmed <title> text, or "" when absent.
func ExtractTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// imageSource picks the element's source URL, preferring lazy-load
// attributes over src, and reports whether a lazy attribute supplied it.
func imageSource(s *goquery.Selection) (string, bool) {
	for _, attr := range lazyAttrs {
		if v, ok := s.Attr(attr); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v, true
			}
		}
	}
	if v, ok := s.Attr("src"); ok {
		return strings.TrimSpace(v), false
	}
	return "", false
}

func resolve(base *url.URL, ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		parsed = base.ResolveReference(parsed)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return parsed.String()
}

// looksLikeImage accepts known image extensions case-insensitively and URLs
// without any extension (validation deferred to download time). A lazy-load
// attribute strongly implies an image regardless of extension.
func looksLikeImage(rawURL string, fromLazyAttr bool) bool {
	if fromLazyAttr {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	if ext == "" {
		return true
	}
	return imageExts[ext]
}

// CleanImageURL rewrites a URL to its full-size form: resizing style path
// segments are stripped and query parameters dropped, except itok tokens
// which some CMS installs require for access.
func CleanImageURL(rawURL string) string {
	cleaned := resizeStylePath.ReplaceAllString(rawURL, "/")

	parsed, err := url.Parse(cleaned)
	if err != nil {
		return cleaned
	}
	if parsed.RawQuery == "" {
		return cleaned
	}

	if itok := parsed.Query().Get("itok"); itok != "" {
		parsed.RawQuery = url.Values{"itok": []string{itok}}.Encode()
	} else {
		parsed.RawQuery = ""
	}
	return parsed.String()
}
