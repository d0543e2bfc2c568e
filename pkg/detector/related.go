// Package detector locates related-chapter links on a page and detects the
// language of page titles. Both detectors are heuristic and best-effort:
// false negatives are acceptable and malformed markup never fails a run.
package detector

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/models"
)

// chapterPattern matches chapter/part wording adjacent to a number, in link
// text or URL path segments.
var chapterPattern = regexp.MustCompile(`(?i)\b(?:chapter|chap|ch|part|episode|ep|vol|volume)\.?[\s_-]*#?\d+`)

// trailingNumber matches path segments that end in a number, e.g.
// "chapter-03" or "part_2".
var trailingNumber = regexp.MustCompile(`\d+$`)

// DetectRelated scans a document for links to sibling chapters/parts of the
// same content. Chapter-select dropdowns (options carrying a data-redirect
// URL) rank first, followed by anchors whose text or path resembles a
// chapter pattern next to the source path. The source URL itself and exact
// duplicates are excluded.
func DetectRelated(html string, source *url.URL) []models.RelatedLink {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var links []models.RelatedLink
	seen := map[string]bool{Canonical(source): true}

	add := func(raw, label string) {
		parsed, err := url.Parse(strings.TrimSpace(raw))
		if err != nil {
			return
		}
		if source != nil {
			parsed = source.ResolveReference(parsed)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return
		}
		key := Canonical(parsed)
		if seen[key] {
			return
		}
		seen[key] = true
		links = append(links, models.RelatedLink{
			URL:   parsed.String(),
			Label: strings.TrimSpace(label),
		})
	}

	// Chapter dropdowns: the strongest signal. Only options pointing at the
	// same series as the source count.
	doc.Find("select option[data-redirect]").Each(func(_ int, s *goquery.Selection) {
		redirect, _ := s.Attr("data-redirect")
		if redirect == "" {
			return
		}
		target, err := url.Parse(redirect)
		if err != nil {
			return
		}
		if source != nil {
			target = source.ResolveReference(target)
		}
		if !sameSeries(source, target) {
			return
		}
		add(redirect, s.Text())
	})

	// Anchors with chapter-looking text or a numeric path sibling.
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" {
			return
		}
		target, err := url.Parse(href)
		if err != nil {
			return
		}
		if source != nil {
			target = source.ResolveReference(target)
		}
		if source != nil && target.Host != source.Host {
			return
		}

		label := strings.TrimSpace(s.Text())
		if chapterPattern.MatchString(label) || pathSibling(source, target) {
			add(href, label)
		}
	})

	return links
}

// Canonical reduces a URL to scheme, host, and trimmed path so that
// near-identical URLs (trailing slash, query, fragment variants) compare
// equal. Callers tracking visited pages should key on this form.
func Canonical(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Scheme + "://" + u.Host + strings.TrimSuffix(u.Path, "/")
}

// seriesSlug returns the path with any trailing chapter-like segment
// removed: /comic/story-name/chapter-03 -> /comic/story-name.
func seriesSlug(u *url.URL) string {
	if u == nil {
		return ""
	}
	p := strings.TrimSuffix(u.Path, "/")
	segments := strings.Split(p, "/")
	if len(segments) < 2 {
		return p
	}
	last := segments[len(segments)-1]
	if chapterPattern.MatchString(last) || trailingNumber.MatchString(last) {
		return strings.Join(segments[:len(segments)-1], "/")
	}
	return p
}

// sameSeries reports whether two URLs share host and series slug.
func sameSeries(source, target *url.URL) bool {
	if source == nil || target == nil {
		return false
	}
	if source.Host != target.Host {
		return false
	}
	slug := seriesSlug(source)
	return slug != "" && slug == seriesSlug(target)
}

// pathSibling reports whether target sits next to source in the URL tree
// with a numeric chapter-like final segment.
func pathSibling(source, target *url.URL) bool {
	if source == nil || target == nil {
		return false
	}
	tp := strings.TrimSuffix(target.Path, "/")
	last := tp[strings.LastIndex(tp, "/")+1:]
	if !trailingNumber.MatchString(last) {
		return false
	}
	return sameSeries(source, target)
}
