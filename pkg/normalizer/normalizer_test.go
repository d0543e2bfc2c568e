package normalizer

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/Monster-ZeroX/Web-Image-to-PDF-Downloader/models"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestNormalize_JPEG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 4; x++ {
			src.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}

	img, err := Normalize(3, buf.Bytes())
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if img.Index != 3 {
		t.Errorf("index = %d, want 3", img.Index)
	}
	if img.SourceFormat != "jpeg" {
		t.Errorf("format = %q, want jpeg", img.SourceFormat)
	}
	if got := img.Pixels.Bounds(); got.Dx() != 4 || got.Dy() != 6 {
		t.Errorf("bounds = %v, want 4x6", got)
	}
}

func TestNormalize_TransparentPNGFlattensToWhite(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.Set(0, 0, color.NRGBA{R: 0, G: 0, B: 0, A: 0})     // fully transparent
	src.Set(1, 0, color.NRGBA{R: 255, G: 0, B: 0, A: 255}) // opaque red
	src.Set(0, 1, color.NRGBA{R: 0, G: 0, B: 255, A: 128}) // half blue
	src.Set(1, 1, color.NRGBA{R: 0, G: 255, B: 0, A: 255}) // opaque green

	img, err := Normalize(0, encodePNG(t, src))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if img.SourceFormat != "png" {
		t.Errorf("format = %q, want png", img.SourceFormat)
	}

	// The transparent pixel must come out white, not black.
	r, g, b, a := img.Pixels.At(0, 0).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 || a>>8 != 255 {
		t.Errorf("transparent pixel = (%d,%d,%d,%d), want white", r>>8, g>>8, b>>8, a>>8)
	}

	// The opaque red pixel survives.
	r, g, b, _ = img.Pixels.At(1, 0).RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("red pixel = (%d,%d,%d), want (255,0,0)", r>>8, g>>8, b>>8)
	}

	// The half-transparent blue pixel blends toward white.
	r, g, b, _ = img.Pixels.At(0, 1).RGBA()
	if b>>8 < 200 || r>>8 < 100 {
		t.Errorf("blended pixel = (%d,%d,%d), want blue over white", r>>8, g>>8, b>>8)
	}
}

func TestNormalize_PaletteGIF(t *testing.T) {
	src := image.NewPaletted(image.Rect(0, 0, 3, 3), color.Palette{
		color.RGBA{R: 255, G: 255, B: 255, A: 255},
		color.RGBA{R: 10, G: 20, B: 30, A: 255},
	})
	src.SetColorIndex(1, 1, 1)
	var buf bytes.Buffer
	if err := gif.Encode(&buf, src, nil); err != nil {
		t.Fatalf("failed to encode gif: %v", err)
	}

	img, err := Normalize(0, buf.Bytes())
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if img.SourceFormat != "gif" {
		t.Errorf("format = %q, want gif", img.SourceFormat)
	}
	r, g, b, _ := img.Pixels.At(1, 1).RGBA()
	if r>>8 != 10 || g>>8 != 20 || b>>8 != 30 {
		t.Errorf("pixel = (%d,%d,%d), want (10,20,30)", r>>8, g>>8, b>>8)
	}
}

func TestNormalize_DecodeFailures(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "garbage", data: []byte("definitely not an image")},
		{name: "html error page", data: []byte("<html><body>404 Not Found</body></html>")},
		{name: "truncated png", data: encodePNGPrefix(8)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(0, tt.data)
			if err == nil {
				t.Fatal("Normalize() succeeded, want decode failure")
			}
			var failure *models.Failure
			if !errors.As(err, &failure) {
				t.Fatalf("error type = %T, want *models.Failure", err)
			}
			if failure.Kind != models.ErrDecode {
				t.Errorf("kind = %q, want %q", failure.Kind, models.ErrDecode)
			}
		})
	}
}

// encodePNGPrefix returns the first n bytes of a valid PNG.
func encodePNGPrefix(n int) []byte {
	var buf bytes.Buffer
	_ = png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 10)))
	data := buf.Bytes()
	if n > len(data) {
		n = len(data)
	}
	return data[:n]
}
