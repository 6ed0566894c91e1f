package imagehash

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math/bits"
	"strconv"
	"strings"

	"github.com/nfnt/resize"
)

// gridSize is the side length of the downsampled grid; gridSize² must be 64.
const gridSize = 8

// ErrInvalidRegion indicates a crop rectangle that is empty or falls outside
// the image bounds.
var ErrInvalidRegion = errors.New("invalid region")

// Hash is a 64-bit average hash. The most significant bit is the top-left cell
// of the grid, continuing row-major.
type Hash uint64

// Distance returns the Hamming distance between two hashes.
func Distance(a, b Hash) int {
	return bits.OnesCount64(uint64(a ^ b))
}

// Distance returns the Hamming distance from h to other.
func (h Hash) Distance(other Hash) int {
	return Distance(h, other)
}

// String formats the hash as 16 lowercase hex digits.
func (h Hash) String() string {
	return fmt.Sprintf("%016x", uint64(h))
}

// Parse reads a hash previously produced by Hash.String.
func Parse(value string) (Hash, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if len(trimmed) != 16 {
		return 0, fmt.Errorf("parse hash %q: want 16 hex digits", value)
	}
	v, err := strconv.ParseUint(trimmed, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hash %q: %w", value, err)
	}
	return Hash(v), nil
}

// Average computes the average hash of the full image.
func Average(img image.Image) Hash {
	gray := luma(img)
	small := resize.Resize(gridSize, gridSize, gray, resize.Lanczos3)
	bounds := small.Bounds()

	var cells [gridSize * gridSize]uint8
	var sum int
	for y := 0; y < gridSize; y++ {
		for x := 0; x < gridSize; x++ {
			v := color.GrayModel.Convert(small.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray).Y
			cells[y*gridSize+x] = v
			sum += int(v)
		}
	}

	// A cell is set when strictly brighter than the mean. Comparing v*64 to the
	// sum keeps the threshold exact without floating point.
	var h Hash
	for _, v := range cells {
		h <<= 1
		if int(v)*len(cells) > sum {
			h |= 1
		}
	}
	return h
}

// HashRegion crops img to rect and returns the average hash of the crop. The
// rectangle is interpreted relative to the image origin and must lie entirely
// within the image.
func HashRegion(img image.Image, rect image.Rectangle) (Hash, error) {
	crop, err := Crop(img, rect)
	if err != nil {
		return 0, err
	}
	return Average(crop), nil
}

// Crop returns the sub-image addressed by rect, relative to the image origin.
func Crop(img image.Image, rect image.Rectangle) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidRegion)
	}
	bounds := img.Bounds()
	target := rect.Add(bounds.Min)
	if rect.Empty() || !target.In(bounds) {
		return nil, fmt.Errorf("%w: %v outside %dx%d image", ErrInvalidRegion, rect, bounds.Dx(), bounds.Dy())
	}
	if sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(target), nil
	}
	dst := image.NewNRGBA(image.Rect(0, 0, target.Dx(), target.Dy()))
	for y := 0; y < target.Dy(); y++ {
		for x := 0; x < target.Dx(); x++ {
			dst.Set(x, y, img.At(target.Min.X+x, target.Min.Y+y))
		}
	}
	return dst, nil
}

// luma converts img to 8-bit grayscale using the ITU-R 601-2 weights on
// un-premultiplied channels, ignoring alpha.
func luma(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			l := (uint32(c.R)*19595 + uint32(c.G)*38470 + uint32(c.B)*7471 + 1<<15) >> 16
			gray.Pix[y*gray.Stride+x] = uint8(l)
		}
	}
	return gray
}
