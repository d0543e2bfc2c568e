package extractor

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// paginationMarkers are text fragments that betray a one-image-per-page
// gallery with next/previous navigation.
var paginationMarkers = []string{
	"next image",
	"previous image",
	"paggaleria",
	"next-page",
	"prev-page",
}

var (
	controlID       = regexp.MustCompile(`(?i)control`)
	mainContainerID = regexp.MustCompile(`(?i)content|main|comic|image`)
	mainImageClass  = regexp.MustCompile(`(?i)main|comic|content|gallery|primary`)
	nextLinkText    = regexp.MustCompile(`(?i)next\s+(image|page)|next\s*>>|^\s*>>\s*$`)
	nextLinkClass   = regexp.MustCompile(`(?i)next|paggaleria`)
	pageNumberTail  = regexp.MustCompile(`(.*?)[-/](\d+)/?$`)
)

// uiImageWords mark images that are page chrome, not gallery content.
var uiImageWords = []string{"logo", "icon", "avatar", "button", "banner", "ad", "thumb"}

// IsPaginatedGallery reports whether a page looks like a one-image-per-page
// gallery: pagination wording in the markup or a navigation control block.
func IsPaginatedGallery(html string) bool {
	lower := strings.ToLower(html)
	for _, marker := range paginationMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	found := false
	doc.Find("div[id]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		if controlID.MatchString(id) {
			found = true
			return false
		}
		return true
	})
	return found
}

// ExtractMainImage picks the primary content image of a single gallery page.
// Containers with content-like ids rank first, then images with content-like
// classes, then the largest image by declared dimensions with UI chrome
// filtered out. Returns "" when no candidate survives.
func ExtractMainImage(html string, base *url.URL) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	// Content containers.
	var fromContainer string
	doc.Find("div[id], article[id]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		if !mainContainerID.MatchString(id) {
			return true
		}
		s.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
			if u := candidateImage(img, base); u != "" {
				fromContainer = u
				return false
			}
			return true
		})
		return fromContainer == ""
	})
	if fromContainer != "" {
		return fromContainer
	}

	// Content-classed images.
	var fromClass string
	doc.Find("img[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		if !mainImageClass.MatchString(class) {
			return true
		}
		if u := candidateImage(s, base); u != "" {
			fromClass = u
			return false
		}
		return true
	})
	if fromClass != "" {
		return fromClass
	}

	// Largest remaining image by declared size.
	var best string
	bestScore := -1
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		u := candidateImage(s, base)
		if u == "" || isUIImage(u) {
			return
		}
		score := 0
		if w, ok := s.Attr("width"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(w)); err == nil {
				score += n
			}
		}
		if h, ok := s.Attr("height"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(h)); err == nil {
				score += n
			}
		}
		if score > bestScore {
			bestScore = score
			best = u
		}
	})
	return best
}

// FindNextPage locates the next-page URL of a paginated gallery: anchors
// with next-like text, next-classed anchors (or spans wrapped in one), and
// finally a numeric increment of the current URL verified against the
// markup. Returns "" at the end of the gallery.
func FindNextPage(html string, current *url.URL) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var next string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !nextLinkText.MatchString(strings.TrimSpace(s.Text())) {
			return true
		}
		href, _ := s.Attr("href")
		if u := resolveAgainst(current, href); u != "" {
			next = u
			return false
		}
		return true
	})
	if next != "" {
		return next
	}

	doc.Find("a[class], span[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		if !nextLinkClass.MatchString(class) {
			return true
		}
		anchor := s
		if goquery.NodeName(s) == "span" {
			anchor = s.Closest("a")
			if anchor.Length() == 0 {
				return true
			}
		}
		href, _ := anchor.Attr("href")
		if u := resolveAgainst(current, href); u != "" {
			next = u
			return false
		}
		return true
	})
	if next != "" {
		return next
	}

	return incrementedPage(html, current)
}

// incrementedPage builds the next URL from a numeric tail (e.g. .../page-03)
// and accepts it only when the markup mentions it.
func incrementedPage(html string, current *url.URL) string {
	if current == nil {
		return ""
	}
	m := pageNumberTail.FindStringSubmatch(current.String())
	if m == nil {
		return ""
	}
	page, err := strconv.Atoi(m[2])
	if err != nil {
		return ""
	}

	var potential string
	if page < 10 {
		potential = fmt.Sprintf("%s-%02d/", m[1], page+1)
	} else {
		potential = fmt.Sprintf("%s-%d/", m[1], page+1)
	}
	if strings.Contains(html, potential) {
		return potential
	}
	return ""
}

func candidateImage(s *goquery.Selection, base *url.URL) string {
	src, lazy := imageSource(s)
	if src == "" {
		return ""
	}
	resolved := resolve(base, src)
	if resolved == "" {
		return ""
	}
	cleaned := CleanImageURL(resolved)
	if !looksLikeImage(cleaned, lazy) {
		return ""
	}
	return cleaned
}

func isUIImage(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, word := range uiImageWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func resolveAgainst(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	return resolve(base, href)
}
