package banner

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"plexbanner/internal/imagehash"
)

// Composite returns poster resized to size (when it is not already that size)
// with banner drawn over it at anchor. Neither input is modified.
func Composite(poster, banner image.Image, size, anchor image.Point) *image.NRGBA {
	dst := imagehash.Fit(poster, size)
	overlay(dst, banner, anchor)
	return dst
}

// SpoilerSigma is the Gaussian blur strength used to hide episode artwork.
const SpoilerSigma = 30

// Blur returns poster resized to size (when it is not already that size) and
// blurred with a Gaussian of the given sigma.
func Blur(poster image.Image, size image.Point, sigma float64) *image.NRGBA {
	return imaging.Blur(imagehash.Fit(poster, size), sigma)
}

func overlay(dst draw.Image, banner image.Image, anchor image.Point) {
	draw.Copy(dst, anchor, banner, banner.Bounds(), draw.Over, nil)
}

// Compositor applies decided actions using overlays from a ReferenceSet.
type Compositor struct {
	refs *ReferenceSet
}

// NewCompositor returns a compositor backed by refs.
func NewCompositor(refs *ReferenceSet) *Compositor {
	return &Compositor{refs: refs}
}

// Apply composites each action's overlay onto poster in order, anchored at
// the top-left corner.
func (c *Compositor) Apply(poster image.Image, class Class, actions []Action) (*image.NRGBA, error) {
	spec, err := c.refs.Spec(class)
	if err != nil {
		return nil, err
	}
	dst := imagehash.Fit(poster, spec.Size)
	for _, action := range actions {
		banner, err := c.refs.Overlay(action.Template)
		if err != nil {
			return nil, fmt.Errorf("apply %s banner: %w", action.Kind, err)
		}
		overlay(dst, banner, image.Point{})
	}
	return dst, nil
}

// ApplyFile composites actions onto the poster stored at path and rewrites
// the file as PNG. The file is left untouched when any overlay fails.
func (c *Compositor) ApplyFile(path string, class Class, actions []Action) error {
	poster, err := imagehash.Load(path)
	if err != nil {
		return fmt.Errorf("load poster: %w", err)
	}
	result, err := c.Apply(poster, class, actions)
	if err != nil {
		return err
	}
	return imagehash.SavePNG(path, result)
}
