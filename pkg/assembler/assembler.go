// Package assembler writes normalized images into a single PDF, one page
// per image in index order.
package assembler

import (
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"sort"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/internal/common"
	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/models"
)

const jpegQuality = 90

// Assemble writes images to a PDF named after the sanitized title inside
// outDir. Pages follow ascending image index; each page is sized to its
// image. The file appears atomically: a temporary PDF is built first and
// renamed into place, so an existing file with the same name is replaced
// whole, never appended to. Zero images is an empty-document failure and no
// file is created.
func Assemble(images []models.NormalizedImage, title, outDir string) (models.PdfArtifact, error) {
	if len(images) == 0 {
		return models.PdfArtifact{}, &models.Failure{Kind: models.ErrEmptyDocument, Err: fmt.Errorf("no images to assemble")}
	}

	sorted := make([]models.NormalizedImage, len(images))
	copy(sorted, images)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return models.PdfArtifact{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	staging, err := os.MkdirTemp("", "img2pdf-pages-")
	if err != nil {
		return models.PdfArtifact{}, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	pagePaths := make([]string, 0, len(sorted))
	for i, img := range sorted {
		pagePath := filepath.Join(staging, fmt.Sprintf("%03d.jpg", i))
		if err := writeJPEG(pagePath, img); err != nil {
			return models.PdfArtifact{}, err
		}
		pagePaths = append(pagePaths, pagePath)
	}

	base := common.SanitizeTitle(title)
	outPath := filepath.Join(outDir, base+".pdf")

	// ImportImagesFile appends when its output file already exists, so the
	// build happens at a path that cannot pre-exist and replaces outPath via
	// rename.
	tmpPath := filepath.Join(outDir, fmt.Sprintf(".%s.%d.tmp.pdf", base, os.Getpid()))
	if err := pdfapi.ImportImagesFile(pagePaths, tmpPath, nil, model.NewDefaultConfiguration()); err != nil {
		os.Remove(tmpPath)
		return models.PdfArtifact{}, fmt.Errorf("failed to build PDF: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return models.PdfArtifact{}, fmt.Errorf("failed to finalize PDF: %w", err)
	}

	return models.PdfArtifact{
		FilePath:  outPath,
		PageCount: len(sorted),
	}, nil
}

func writeJPEG(path string, img models.NormalizedImage) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to stage page %d: %w", img.Index, err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, img.Pixels, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return fmt.Errorf("failed to encode page %d: %w", img.Index, err)
	}
	return nil
}
