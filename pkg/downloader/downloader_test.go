package downloader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/models"
)

// fakeGetter serves canned responses, optionally delaying some URLs to force
// out-of-order completion.
type fakeGetter struct {
	mu     sync.Mutex
	delays map[string]time.Duration
	fail   map[string]error
	calls  int32
	onCall func(n int32)
}

func (g *fakeGetter) Get(ctx context.Context, url string) ([]byte, string, error) {
	n := atomic.AddInt32(&g.calls, 1)
	if g.onCall != nil {
		g.onCall(n)
	}
	if d, ok := g.delays[url]; ok {
		time.Sleep(d)
	}
	if err, ok := g.fail[url]; ok {
		return nil, "", err
	}
	return []byte("data:" + url), url, nil
}

func refsFor(urls ...string) []models.ImageReference {
	refs := make([]models.ImageReference, len(urls))
	for i, u := range urls {
		refs[i] = models.ImageReference{Index: i, URL: u}
	}
	return refs
}

func TestDownloadAll_PreservesInputOrder(t *testing.T) {
	getter := &fakeGetter{
		delays: map[string]time.Duration{
			"https://e.com/0.jpg": 30 * time.Millisecond,
			"https://e.com/1.jpg": 10 * time.Millisecond,
		},
	}
	refs := refsFor("https://e.com/0.jpg", "https://e.com/1.jpg", "https://e.com/2.jpg", "https://e.com/3.jpg")

	d := New(getter, 4, nil)
	results, err := d.DownloadAll(context.Background(), refs, nil)
	if err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}

	if len(results) != len(refs) {
		t.Fatalf("got %d results, want %d", len(results), len(refs))
	}
	for i, result := range results {
		if result.Index != i {
			t.Errorf("result %d has index %d, want %d", i, result.Index, i)
		}
		if result.URL != refs[i].URL {
			t.Errorf("result %d URL = %q, want %q", i, result.URL, refs[i].URL)
		}
		if result.Status != models.StatusSuccess {
			t.Errorf("result %d status = %q, want success", i, result.Status)
		}
		if string(result.Data) != "data:"+refs[i].URL {
			t.Errorf("result %d carries wrong payload", i)
		}
	}
}

func TestDownloadAll_PartialFailureDoesNotAbort(t *testing.T) {
	getter := &fakeGetter{
		fail: map[string]error{
			"https://e.com/1.jpg": &models.Failure{Kind: models.ErrHTTP, Status: 404},
		},
	}
	refs := refsFor("https://e.com/0.jpg", "https://e.com/1.jpg", "https://e.com/2.jpg")

	d := New(getter, 2, nil)
	results, err := d.DownloadAll(context.Background(), refs, nil)
	if err != nil {
		t.Fatalf("DownloadAll() error = %v, want nil on partial failure", err)
	}

	if results[0].Status != models.StatusSuccess || results[2].Status != models.StatusSuccess {
		t.Error("sibling downloads should succeed")
	}
	if results[1].Status != models.StatusFailure {
		t.Fatalf("result 1 status = %q, want failed", results[1].Status)
	}
	if results[1].Kind != models.ErrHTTP {
		t.Errorf("result 1 kind = %q, want %q", results[1].Kind, models.ErrHTTP)
	}
	if results[1].Data != nil {
		t.Error("failed result should carry no data")
	}
}

func TestDownloadAll_AllFailed(t *testing.T) {
	getter := &fakeGetter{
		fail: map[string]error{
			"https://e.com/0.jpg": errors.New("connection refused"),
			"https://e.com/1.jpg": errors.New("connection refused"),
		},
	}
	refs := refsFor("https://e.com/0.jpg", "https://e.com/1.jpg")

	d := New(getter, 2, nil)
	results, err := d.DownloadAll(context.Background(), refs, nil)
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("DownloadAll() error = %v, want ErrAllFailed", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want full collection even on total failure", len(results))
	}
	for i, result := range results {
		if result.Kind != models.ErrNetwork {
			t.Errorf("result %d kind = %q, want network_error for untyped errors", i, result.Kind)
		}
	}
}

func TestDownloadAll_EmptyInput(t *testing.T) {
	d := New(&fakeGetter{}, 2, nil)
	results, err := d.DownloadAll(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestDownloadAll_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// Single worker keeps processing sequential; cancel during the third
	// fetch so exactly three claimed requests complete.
	getter := &fakeGetter{
		onCall: func(n int32) {
			if n == 3 {
				cancel()
			}
		},
	}
	refs := refsFor(
		"https://e.com/0.jpg", "https://e.com/1.jpg", "https://e.com/2.jpg",
		"https://e.com/3.jpg", "https://e.com/4.jpg",
	)

	d := New(getter, 1, nil)
	results, err := d.DownloadAll(ctx, refs, nil)

	if models.KindOf(err) != models.ErrCancelled {
		t.Fatalf("DownloadAll() error = %v, want cancelled failure", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d completed results, want 3", len(results))
	}
	for i, result := range results {
		if result.Index != i {
			t.Errorf("completed result %d has index %d, want input order preserved", i, result.Index)
		}
		if result.Status != models.StatusSuccess {
			t.Errorf("in-flight request %d should have run to completion", i)
		}
	}
}

func TestDownloadAll_ProgressEvents(t *testing.T) {
	getter := &fakeGetter{
		fail: map[string]error{
			"https://e.com/2.jpg": &models.Failure{Kind: models.ErrHTTP, Status: 500},
		},
	}
	refs := refsFor("https://e.com/0.jpg", "https://e.com/1.jpg", "https://e.com/2.jpg", "https://e.com/3.jpg")

	var mu sync.Mutex
	var events []Event
	d := New(getter, 3, nil)
	_, err := d.DownloadAll(context.Background(), refs, func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}

	if len(events) != len(refs) {
		t.Fatalf("got %d events, want one per reference (%d)", len(events), len(refs))
	}

	var failures int
	for _, e := range events {
		if !e.Success {
			failures++
			if e.Kind != models.ErrHTTP {
				t.Errorf("failure event kind = %q, want %q", e.Kind, models.ErrHTTP)
			}
			if !strings.Contains(e.URL, "2.jpg") {
				t.Errorf("failure event URL = %q, want the 500 URL", e.URL)
			}
		}
	}
	if failures != 1 {
		t.Errorf("got %d failure events, want 1", failures)
	}
}

func TestNew_Defaults(t *testing.T) {
	d := New(&fakeGetter{}, 0, nil)
	if d.workers != DefaultWorkers {
		t.Errorf("workers = %d, want %d", d.workers, DefaultWorkers)
	}
	if d.logger == nil {
		t.Error("logger should default to slog.Default()")
	}
}

func TestDownloadAll_ManyReferences(t *testing.T) {
	urls := make([]string, 50)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://e.com/%02d.jpg", i)
	}
	refs := refsFor(urls...)

	d := New(&fakeGetter{}, 8, nil)
	results, err := d.DownloadAll(context.Background(), refs, nil)
	if err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}
	for i, result := range results {
		if result.Index != i || result.URL != urls[i] {
			t.Fatalf("result %d out of order: %+v", i, result)
		}
	}
}
