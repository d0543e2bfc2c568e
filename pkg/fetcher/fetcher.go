// Package fetcher issues browser-like HTTP requests with optional cookie
// and protection-bypass support.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/models"
	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/pkg/cookies"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// baseHeaders mimic a desktop browser on every request to reduce naive bot
// detection.
var baseHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
	"Accept-Language":           "en-US,en;q=0.9",
	"Upgrade-Insecure-Requests": "1",
}

// bypassHeaders extend the fingerprint with client hints for the single
// retry after a protection challenge.
var bypassHeaders = map[string]string{
	"Sec-Ch-Ua":          `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`,
	"Sec-Ch-Ua-Mobile":   "?0",
	"Sec-Ch-Ua-Platform": `"Windows"`,
	"Sec-Fetch-Dest":     "document",
	"Sec-Fetch-Mode":     "navigate",
	"Sec-Fetch-Site":     "none",
	"Sec-Fetch-User":     "?1",
	"Cache-Control":      "max-age=0",
}

// Options configures a Fetcher. Cookies come pre-exported from a browser;
// Bypass is the protection-bypass capability flag.
type Options struct {
	Cookies   []*http.Cookie
	Bypass    bool
	Timeout   time.Duration
	UserAgent string
	Jar       http.CookieJar // overrides Cookies when set; used by tests
}

type Fetcher struct {
	client    *http.Client
	bypass    bool
	userAgent string
}

// NewFetcher builds a fetch adapter. The jar for Options.Cookies is
// constructed by pkg/cookies; passing neither yields unauthenticated
// requests.
func NewFetcher(opts Options) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	jar := opts.Jar
	if jar == nil && len(opts.Cookies) > 0 {
		jar, _ = cookies.NewJar(opts.Cookies)
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		bypass:    opts.Bypass,
		userAgent: userAgent,
	}
}

// SetJar installs a cookie jar on the underlying client.
func (f *Fetcher) SetJar(jar http.CookieJar) {
	f.client.Jar = jar
}

// challengeStatus reports whether a response status looks like a
// service-level protection challenge rather than an ordinary error.
func challengeStatus(status int) bool {
	switch status {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// Get fetches a URL and returns the body and the final URL after redirects.
// On a protection challenge with bypass enabled it retries once with the
// extended fingerprint; failures are typed models.Failure values.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	body, status, finalURL, err := f.do(ctx, rawURL, false)
	if err != nil {
		return nil, "", &models.Failure{Kind: models.ErrNetwork, Err: err}
	}

	if challengeStatus(status) && f.bypass {
		body, status, finalURL, err = f.do(ctx, rawURL, true)
		if err != nil {
			return nil, "", &models.Failure{Kind: models.ErrNetwork, Err: err}
		}
		if challengeStatus(status) {
			return nil, "", &models.Failure{Kind: models.ErrProtectionBlocked, Status: status}
		}
	}

	// Without a bypass attempt a challenge status is just an HTTP error;
	// ProtectionBlocked means the bypass retry was exhausted.
	if status < 200 || status > 299 {
		return nil, "", &models.Failure{Kind: models.ErrHTTP, Status: status}
	}

	return body, finalURL, nil
}

// GetDocument fetches a URL and wraps the body as a PageDocument. The title
// is left empty; the pipeline fills it during extraction.
func (f *Fetcher) GetDocument(ctx context.Context, rawURL string) (*models.PageDocument, error) {
	body, finalURL, err := f.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	source, parseErr := url.Parse(finalURL)
	if parseErr != nil {
		return nil, &models.Failure{Kind: models.ErrNetwork, Err: fmt.Errorf("failed to parse final URL: %w", parseErr)}
	}

	return &models.PageDocument{
		SourceURL: source,
		RawHTML:   string(body),
	}, nil
}

func (f *Fetcher) do(ctx context.Context, rawURL string, bypass bool) ([]byte, int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, "", fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Referer", rawURL)
	for k, v := range baseHeaders {
		req.Header.Set(k, v)
	}
	if bypass {
		for k, v := range bypassHeaders {
			req.Header.Set(k, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, "", fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, "", fmt.Errorf("failed to read response body: %w", err)
	}

	return body, resp.StatusCode, resp.Request.URL.String(), nil
}
