// Package cookies loads browser-exported cookie files in Netscape format
// and turns them into a cookie jar for the fetcher.
package cookies

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
)

// ParseFile reads a Netscape-format cookie export (the format produced by
// common "export cookies" browser extensions).
func ParseFile(path string) ([]*http.Cookie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cookies file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads Netscape cookie lines: seven tab-separated fields per line
// (domain, include-subdomains flag, path, secure, expiry, name, value).
// Comment lines and short lines are skipped. Expiry is ignored; the jar
// holds cookies for the lifetime of the process.
func Parse(r io.Reader) ([]*http.Cookie, error) {
	var cookies []*http.Cookie

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 7 {
			continue
		}

		cookies = append(cookies, &http.Cookie{
			Domain: parts[0],
			Path:   parts[2],
			Secure: strings.EqualFold(parts[3], "TRUE"),
			Name:   parts[5],
			Value:  parts[6],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cookies file: %w", err)
	}

	return cookies, nil
}

// NewJar builds a cookie jar holding the given cookies, grouped by domain.
func NewJar(cookies []*http.Cookie) (http.CookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	byDomain := make(map[string][]*http.Cookie)
	for _, c := range cookies {
		domain := strings.TrimPrefix(c.Domain, ".")
		if domain == "" {
			continue
		}
		byDomain[domain] = append(byDomain[domain], c)
	}

	for domain, cs := range byDomain {
		u := &url.URL{Scheme: "https", Host: domain}
		jar.SetCookies(u, cs)
	}

	return jar, nil
}
