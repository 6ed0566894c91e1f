package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"testing"

	"plexbanner/internal/imagehash"
)

// SolidImage returns a w*h image filled with c.
func SolidImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// HalfImage returns a w*h image whose left half is white and right half black.
func HalfImage(w, h int) *image.NRGBA {
	return splitImage(w, h)
}

// WritePNG encodes img to path, creating parent directories.
func WritePNG(t testing.TB, path string, img image.Image) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := imagehash.SavePNG(path, img); err != nil {
		t.Fatalf("write png %s: %v", path, err)
	}
}

// PNGBytes encodes img for use as an HTTP response body.
func PNGBytes(t testing.TB, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := imagehash.EncodePNG(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
