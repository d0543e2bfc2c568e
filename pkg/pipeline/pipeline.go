// Package pipeline runs the full webpage-to-PDF flow: fetch, extract,
// download, normalize, assemble, record.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/internal/common"
	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/models"
	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/pkg/assembler"
	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/pkg/db"
	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/pkg/detector"
	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/pkg/downloader"
	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/pkg/extractor"
	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/pkg/normalizer"
)

// Pipeline stages, reported on RunError for failure attribution.
const (
	StageFetching    = "fetching"
	StageExtracting  = "extracting"
	StageDownloading = "downloading"
	StageAssembling  = "assembling"
)

// RunError attributes a pipeline failure to the stage that produced it.
type RunError struct {
	Stage string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Fetcher is the page/image transport dependency.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, string, error)
	GetDocument(ctx context.Context, url string) (*models.PageDocument, error)
}

// Options wires a Pipeline. Database and NewProgress are optional.
type Options struct {
	Fetcher     Fetcher
	OutDir      string
	Workers     int
	Logger      *slog.Logger
	Database    *db.DB
	NewProgress func(total int) downloader.Progress
}

// Result is the outcome of one successful run.
type Result struct {
	Artifact    models.PdfArtifact
	Title       string
	Language    string
	Related     []models.RelatedLink
	ImageCount  int
	FailedCount int
}

type Pipeline struct {
	fetcher     Fetcher
	outDir      string
	workers     int
	logger      *slog.Logger
	database    *db.DB
	newProgress func(total int) downloader.Progress
}

func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	outDir := opts.OutDir
	if outDir == "" {
		outDir = "."
	}
	return &Pipeline{
		fetcher:     opts.Fetcher,
		outDir:      outDir,
		workers:     opts.Workers,
		logger:      logger,
		database:    opts.Database,
		newProgress: opts.NewProgress,
	}
}

// Run executes the full flow for one URL. Partial image failures do not fail
// the run; a run fails only when the page cannot be fetched, yields no image
// references, every download fails, or the PDF cannot be written.
func (p *Pipeline) Run(ctx context.Context, rawURL string) (*Result, error) {
	doc, err := p.fetcher.GetDocument(ctx, rawURL)
	if err != nil {
		p.recordFailure(rawURL, err)
		return nil, &RunError{Stage: StageFetching, Err: err}
	}

	title := p.resolveTitle(doc)
	language, confidence := detector.DetectLanguage(title)
	p.logger.Info("page fetched", "url", rawURL, "title", title, "language", language, "confidence", confidence)

	refs := p.collectRefs(ctx, doc)
	if len(refs) == 0 {
		err := &models.Failure{Kind: models.ErrEmptyDocument, Err: fmt.Errorf("no image references found")}
		p.recordFailure(rawURL, err)
		return nil, &RunError{Stage: StageExtracting, Err: err}
	}
	p.logger.Info("images extracted", "url", rawURL, "count", len(refs))

	related := detector.DetectRelated(doc.RawHTML, doc.SourceURL)

	var onProgress downloader.Progress
	if p.newProgress != nil {
		onProgress = p.newProgress(len(refs))
	}

	dl := downloader.New(p.fetcher, p.workers, p.logger)
	results, err := dl.DownloadAll(ctx, refs, onProgress)
	if err != nil {
		p.recordFailure(rawURL, err)
		return nil, &RunError{Stage: StageDownloading, Err: err}
	}

	images, failed := p.normalizeAll(results)
	if len(images) == 0 {
		err := &models.Failure{Kind: models.ErrDecode, Err: fmt.Errorf("no image decoded successfully")}
		p.recordFailure(rawURL, err)
		return nil, &RunError{Stage: StageDownloading, Err: err}
	}

	artifact, err := assembler.Assemble(images, title, p.outDir)
	if err != nil {
		p.recordFailure(rawURL, err)
		return nil, &RunError{Stage: StageAssembling, Err: err}
	}
	p.logger.Info("pdf written", "path", artifact.FilePath, "pages", artifact.PageCount, "failed_images", failed)

	result := &Result{
		Artifact:    artifact,
		Title:       title,
		Language:    language,
		Related:     related,
		ImageCount:  len(refs),
		FailedCount: failed,
	}
	p.recordRun(rawURL, result, results)
	return result, nil
}

// Accept decides which detected related links to also run. It is consulted
// after each successful run; returning nil stops the chain.
type Accept func(result *Result, related []models.RelatedLink) []models.RelatedLink

// RunWithRelated runs rawURL and then walks accepted related links
// breadth-first, each as its own isolated run. Already-visited URLs are
// skipped. Returns the results of every successful run; an error from the
// initial URL aborts, related-link errors are logged and skipped.
func (p *Pipeline) RunWithRelated(ctx context.Context, rawURL string, accept Accept) ([]*Result, error) {
	first, err := p.Run(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	results := []*Result{first}
	visited := map[string]bool{visitKey(rawURL): true}

	queue := p.acceptLinks(first, accept, visited)
	for len(queue) > 0 {
		if ctx.Err() != nil {
			return results, &models.Failure{Kind: models.ErrCancelled, Err: ctx.Err()}
		}

		next := queue[0]
		queue = queue[1:]

		result, err := p.Run(ctx, next.URL)
		if err != nil {
			p.logger.Warn("related run failed", "url", next.URL, "error", err)
			continue
		}
		results = append(results, result)
		queue = append(queue, p.acceptLinks(result, accept, visited)...)
	}

	return results, nil
}

func (p *Pipeline) acceptLinks(result *Result, accept Accept, visited map[string]bool) []models.RelatedLink {
	if accept == nil || len(result.Related) == 0 {
		return nil
	}

	fresh := make([]models.RelatedLink, 0, len(result.Related))
	for _, link := range result.Related {
		if !visited[visitKey(link.URL)] {
			fresh = append(fresh, link)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	accepted := accept(result, fresh)
	for _, link := range accepted {
		visited[visitKey(link.URL)] = true
	}
	return accepted
}

// visitKey canonicalizes a URL for the visited set so trailing-slash and
// query variants of an already-run page do not trigger another run.
func visitKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return detector.Canonical(u)
}

// maxGalleryPages caps the pagination walk on hostile or looping galleries.
const maxGalleryPages = 200

// collectRefs gathers image references for a document. Paginated galleries
// (one image per page behind next links) are crawled page by page; anything
// else gets the normal single-page extraction. A gallery crawl that finds
// nothing falls back to the single-page path.
func (p *Pipeline) collectRefs(ctx context.Context, doc *models.PageDocument) []models.ImageReference {
	if extractor.IsPaginatedGallery(doc.RawHTML) {
		if refs := p.walkGallery(ctx, doc); len(refs) > 0 {
			return refs
		}
	}
	return extractor.ExtractImages(doc.RawHTML, doc.SourceURL)
}

// walkGallery follows next-page links from the starting document, taking
// each page's main image. The walk stops at the page cap, a repeated page,
// a missing next link, or a fetch failure; whatever was collected so far is
// kept.
func (p *Pipeline) walkGallery(ctx context.Context, doc *models.PageDocument) []models.ImageReference {
	var refs []models.ImageReference
	seen := make(map[string]bool)
	visited := make(map[string]bool)

	html := doc.RawHTML
	current := doc.SourceURL
	pages := 0

	for pages < maxGalleryPages {
		if ctx.Err() != nil {
			break
		}
		pages++
		visited[detector.Canonical(current)] = true

		img := extractor.ExtractMainImage(html, current)
		if img == "" {
			p.logger.Warn("no main image on gallery page", "url", current.String(), "page", pages)
		} else if !seen[img] {
			seen[img] = true
			refs = append(refs, models.ImageReference{Index: len(refs), URL: img})
		}

		next := extractor.FindNextPage(html, current)
		if next == "" {
			break
		}
		nextURL, err := url.Parse(next)
		if err != nil || visited[detector.Canonical(nextURL)] {
			break
		}

		pageDoc, err := p.fetcher.GetDocument(ctx, next)
		if err != nil {
			p.logger.Warn("gallery page fetch failed", "url", next, "error", err)
			break
		}
		html = pageDoc.RawHTML
		current = pageDoc.SourceURL
	}

	p.logger.Info("gallery crawl finished", "pages", pages, "images", len(refs))
	return refs
}

// resolveTitle tries readability first, then the raw title element, then
// falls back to the source host.
func (p *Pipeline) resolveTitle(doc *models.PageDocument) string {
	if doc.Title != "" {
		return doc.Title
	}

	article, err := readability.FromReader(strings.NewReader(doc.RawHTML), doc.SourceURL)
	if err == nil && strings.TrimSpace(article.Title) != "" {
		return strings.TrimSpace(article.Title)
	}

	if title := extractor.ExtractTitle(doc.RawHTML); title != "" {
		return title
	}
	if doc.SourceURL != nil {
		return doc.SourceURL.Host
	}
	return ""
}

// normalizeAll decodes every successful download. Decode failures are
// attributed back onto the result rows so the run record reflects them.
func (p *Pipeline) normalizeAll(results []models.DownloadResult) ([]models.NormalizedImage, int) {
	images := make([]models.NormalizedImage, 0, len(results))
	failed := 0
	for i := range results {
		result := &results[i]
		if result.Status != models.StatusSuccess {
			failed++
			continue
		}

		img, err := normalizer.Normalize(result.Index, result.Data)
		if err != nil {
			p.logger.Warn("image decode failed", "index", result.Index, "url", result.URL, "error", err)
			result.Status = models.StatusFailure
			result.Kind = models.KindOf(err)
			result.Err = err
			result.Data = nil
			failed++
			continue
		}
		images = append(images, *img)
	}
	return images, failed
}

func (p *Pipeline) recordRun(rawURL string, result *Result, downloads []models.DownloadResult) {
	if p.database == nil {
		return
	}

	runID, err := p.database.RecordRun(db.RunRecord{
		URL:         rawURL,
		Title:       result.Title,
		Language:    result.Language,
		PdfPath:     result.Artifact.FilePath,
		PageCount:   result.Artifact.PageCount,
		ImageCount:  result.ImageCount,
		FailedCount: result.FailedCount,
		Status:      models.StatusSuccess,
	})
	if err != nil {
		p.logger.Warn("failed to record run", "url", rawURL, "error", err)
		return
	}

	for _, d := range downloads {
		record := db.ImageRecord{
			RunID:  runID,
			Index:  d.Index,
			URL:    d.URL,
			Status: d.Status,
		}
		if d.Status == models.StatusSuccess {
			record.SizeBytes = int64(len(d.Data))
			record.Hash = common.ContentHash(d.Data)
		} else {
			record.ErrorKind = string(d.Kind)
		}
		if err := p.database.InsertRunImage(record); err != nil {
			p.logger.Warn("failed to record run image", "url", d.URL, "error", err)
		}
	}
}

func (p *Pipeline) recordFailure(rawURL string, cause error) {
	if p.database == nil {
		return
	}

	_, err := p.database.RecordRun(db.RunRecord{
		URL:       rawURL,
		Status:    models.StatusFailure,
		ErrorKind: string(models.KindOf(cause)),
	})
	if err != nil {
		p.logger.Warn("failed to record run", "url", rawURL, "error", err)
	}
}
