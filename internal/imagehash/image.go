package imagehash

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrImageDecode indicates poster data that could not be decoded.
var ErrImageDecode = errors.New("image decode failed")

// Decode reads an image in any registered format (PNG, JPEG, WebP).
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageDecode, err)
	}
	return img, nil
}

// DecodeBytes decodes an in-memory image buffer.
func DecodeBytes(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrImageDecode)
	}
	return Decode(bytes.NewReader(data))
}

// Load opens and decodes the image at path. Filesystem errors are returned as
// is so callers can distinguish a missing file from corrupt data.
func Load(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// Normalize resamples img to size with Lanczos3 and returns it as NRGBA with
// a zero origin. An image that already has the target size is copied
// without resampling.
func Normalize(img image.Image, size image.Point) *image.NRGBA {
	resized := resize.Resize(uint(size.X), uint(size.Y), img, resize.Lanczos3)
	return toNRGBA(resized)
}

// Fit returns img unchanged (as NRGBA) when it already has the requested size
// and a Lanczos3 resample otherwise.
func Fit(img image.Image, size image.Point) *image.NRGBA {
	if img.Bounds().Size() == size {
		return toNRGBA(img)
	}
	return Normalize(img, size)
}

func toNRGBA(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Copy(dst, image.Point{}, img, bounds, draw.Src, nil)
	return dst
}

// EncodePNG writes img to w as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// SavePNG writes img to path atomically through a temporary sibling file.
func SavePNG(path string, img image.Image) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create image directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".poster-*.png")
	if err != nil {
		return fmt.Errorf("create temp image: %w", err)
	}
	tmpPath := tmp.Name()
	if err := EncodePNG(tmp, img); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp image: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace image: %w", err)
	}
	return nil
}
