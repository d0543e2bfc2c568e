// Package normalizer decodes downloaded image bytes into RGB rasters
// suitable for PDF page emission.
package normalizer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/models"
)

// Normalize decodes data and converts it to an RGB raster at the source
// pixel dimensions. Transparent and palette-indexed pixels are composited
// over a white background. Undecodable bytes (including truncated downloads
// and HTML error pages served with 200) yield a decode failure.
func Normalize(index int, data []byte) (*models.NormalizedImage, error) {
	if len(data) == 0 {
		return nil, &models.Failure{Kind: models.ErrDecode, Err: fmt.Errorf("empty image data")}
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &models.Failure{Kind: models.ErrDecode, Err: fmt.Errorf("failed to decode image: %w", err)}
	}

	bounds := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Over)

	return &models.NormalizedImage{
		Index:        index,
		Pixels:       rgba,
		SourceFormat: format,
	}, nil
}
