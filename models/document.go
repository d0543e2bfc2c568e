package models

import (
	"image"
	"net/url"
)

// PageDocument is a fetched webpage, immutable once created. It is consumed
// by the extractor and detector and discarded after extraction.
type PageDocument struct {
	SourceURL *url.URL
	Title     string
	RawHTML   string
}

// ImageReference is one image URL found in a document. Index is the 0-based
// document-order position and becomes the PDF page order. Within a document
// no two references share a URL; the first occurrence keeps its index.
type ImageReference struct {
	Index int
	URL   string
}

// Download outcome for a single reference.
const (
	StatusSuccess = "success"
	StatusFailure = "failed"
)

// DownloadResult is produced exactly once per ImageReference. For a failed
// item Data is nil and Kind names the failure; Err carries the cause.
type DownloadResult struct {
	Index  int
	URL    string
	Status string
	Data   []byte
	Kind   ErrorKind
	Err    error
}

// NormalizedImage is an RGB raster derived from a successful download,
// ready for PDF page emission.
type NormalizedImage struct {
	Index        int
	Pixels       *image.RGBA
	SourceFormat string // decoded format name: jpeg, png, gif, webp, bmp
}

// RelatedLink is a candidate sibling chapter/part of the source document.
// Informational only; not part of the PDF pipeline invariants.
type RelatedLink struct {
	URL   string
	Label string
}

// PdfArtifact describes a written PDF. PageCount equals the number of
// normalized images that fed the assembler. Written once, never mutated.
type PdfArtifact struct {
	FilePath  string
	PageCount int
}
