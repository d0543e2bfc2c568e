package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/models"
)

func testJar(t *testing.T, serverURL string, cookies ...*http.Cookie) http.CookieJar {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create jar: %v", err)
	}
	u, err := url.Parse(serverURL)
	if err != nil {
		t.Fatalf("failed to parse server URL: %v", err)
	}
	jar.SetCookies(u, cookies)
	return jar
}

func TestGet_SendsBrowserHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := NewFetcher(Options{})
	body, finalURL, err := f.Get(context.Background(), server.URL+"/page")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
	if finalURL != server.URL+"/page" {
		t.Errorf("final URL = %q, want %q", finalURL, server.URL+"/page")
	}

	if ua := got.Get("User-Agent"); ua != defaultUserAgent {
		t.Errorf("User-Agent = %q, want the browser default", ua)
	}
	if got.Get("Accept-Language") == "" {
		t.Error("Accept-Language missing")
	}
	if referer := got.Get("Referer"); referer != server.URL+"/page" {
		t.Errorf("Referer = %q, want the request URL", referer)
	}
	if got.Get("Sec-Ch-Ua") != "" {
		t.Error("client hints should only appear on bypass retries")
	}
}

func TestGet_SendsCookies(t *testing.T) {
	var gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err == nil {
			gotCookie = c.Value
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := NewFetcher(Options{})
	f.SetJar(testJar(t, server.URL, &http.Cookie{Name: "session", Value: "abc123"}))

	if _, _, err := f.Get(context.Background(), server.URL); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if gotCookie != "abc123" {
		t.Errorf("cookie = %q, want abc123", gotCookie)
	}
}

func TestGet_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := NewFetcher(Options{})
	_, _, err := f.Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Get() succeeded, want HTTP error")
	}

	var failure *models.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error type = %T, want *models.Failure", err)
	}
	if failure.Kind != models.ErrHTTP {
		t.Errorf("kind = %q, want %q", failure.Kind, models.ErrHTTP)
	}
	if failure.Status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", failure.Status)
	}
}

func TestGet_ChallengeWithoutBypassIsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	// With bypass disabled no retry happens, so a 403 stays a plain HTTP
	// error; ProtectionBlocked is reserved for an exhausted bypass retry.
	f := NewFetcher(Options{})
	_, _, err := f.Get(context.Background(), server.URL)

	var failure *models.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error type = %T, want *models.Failure", err)
	}
	if failure.Kind != models.ErrHTTP {
		t.Errorf("kind = %q, want %q", failure.Kind, models.ErrHTTP)
	}
	if failure.Status != http.StatusForbidden {
		t.Errorf("status = %d, want 403", failure.Status)
	}
}

func TestGet_BypassRetrySucceeds(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		// Challenge the first attempt; accept only the client-hint retry.
		if r.Header.Get("Sec-Ch-Ua") == "" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("passed"))
	}))
	defer server.Close()

	f := NewFetcher(Options{Bypass: true})
	body, _, err := f.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(body) != "passed" {
		t.Errorf("body = %q, want passed", body)
	}
	if requests != 2 {
		t.Errorf("made %d requests, want exactly one retry", requests)
	}
}

func TestGet_BypassRetryStillBlocked(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	f := NewFetcher(Options{Bypass: true})
	_, _, err := f.Get(context.Background(), server.URL)

	var failure *models.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error type = %T, want *models.Failure", err)
	}
	if failure.Kind != models.ErrProtectionBlocked {
		t.Errorf("kind = %q, want %q", failure.Kind, models.ErrProtectionBlocked)
	}
	if requests != 2 {
		t.Errorf("made %d requests, want 2 (no endless retries)", requests)
	}
}

func TestGetDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusFound)
			return
		}
		w.Write([]byte("<html><title>Doc</title></html>"))
	}))
	defer server.Close()

	f := NewFetcher(Options{})
	doc, err := f.GetDocument(context.Background(), server.URL+"/old")
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}

	// The source URL reflects the redirect target so relative image paths
	// resolve against the real location.
	if doc.SourceURL.Path != "/new" {
		t.Errorf("source path = %q, want /new", doc.SourceURL.Path)
	}
	if doc.RawHTML == "" {
		t.Error("RawHTML is empty")
	}
}

func TestGet_NetworkError(t *testing.T) {
	f := NewFetcher(Options{})
	_, _, err := f.Get(context.Background(), "http://127.0.0.1:1/unreachable")
	if err == nil {
		t.Fatal("Get() succeeded against a closed port")
	}
	if models.KindOf(err) != models.ErrNetwork {
		t.Errorf("kind = %q, want %q", models.KindOf(err), models.ErrNetwork)
	}
}
