package banner

import (
	"fmt"
	"image"

	"plexbanner/internal/imagehash"
)

// ChangeDetector decides whether two posters differ by comparing average
// hashes after normalizing both to Size. A non-empty Region restricts the
// comparison to that rectangle.
type ChangeDetector struct {
	Size   image.Point
	Region image.Rectangle
}

// WholePoster compares complete posters of the class.
func (s Spec) WholePoster() ChangeDetector {
	return ChangeDetector{Size: s.Size}
}

// ArtworkRegion compares only the part of the class posters that banners
// never cover, e.g. the bottom-right quadrant of film posters.
func (s Spec) ArtworkRegion() ChangeDetector {
	return ChangeDetector{Size: s.Size, Region: s.ChangeRegion}
}

// WholePoster is Spec.WholePoster for a built-in class.
func WholePoster(class Class) (ChangeDetector, error) {
	spec, err := DefaultCatalog().Spec(class)
	if err != nil {
		return ChangeDetector{}, err
	}
	return spec.WholePoster(), nil
}

// ArtworkRegion is Spec.ArtworkRegion for a built-in class.
func ArtworkRegion(class Class) (ChangeDetector, error) {
	spec, err := DefaultCatalog().Spec(class)
	if err != nil {
		return ChangeDetector{}, err
	}
	return spec.ArtworkRegion(), nil
}

// Hash returns the comparison hash of img.
func (c ChangeDetector) Hash(img image.Image) (imagehash.Hash, error) {
	if img == nil {
		return 0, fmt.Errorf("%w: nil poster", imagehash.ErrImageDecode)
	}
	normalized := imagehash.Normalize(img, c.Size)
	if c.Region.Empty() {
		return imagehash.Average(normalized), nil
	}
	return imagehash.HashRegion(normalized, c.Region)
}

// Distance returns the hash distance between the two posters.
func (c ChangeDetector) Distance(candidate, reference image.Image) (int, error) {
	a, err := c.Hash(candidate)
	if err != nil {
		return 0, err
	}
	b, err := c.Hash(reference)
	if err != nil {
		return 0, err
	}
	return a.Distance(b), nil
}

// HasChanged reports whether candidate differs from reference by more than
// cutoff. A nil reference or an unusable comparison region counts as changed.
func (c ChangeDetector) HasChanged(candidate, reference image.Image, cutoff int) bool {
	if reference == nil {
		return true
	}
	dist, err := c.Distance(candidate, reference)
	if err != nil {
		return true
	}
	return dist > cutoff
}

// HasChangedFile compares the poster at candidatePath with the one at
// referencePath. A missing or unreadable reference counts as changed; an
// unreadable candidate is an error.
func (c ChangeDetector) HasChangedFile(candidatePath, referencePath string, cutoff int) (bool, error) {
	candidate, err := imagehash.Load(candidatePath)
	if err != nil {
		return false, fmt.Errorf("load candidate poster: %w", err)
	}
	if referencePath == "" {
		return true, nil
	}
	reference, err := imagehash.Load(referencePath)
	if err != nil {
		return true, nil
	}
	return c.HasChanged(candidate, reference, cutoff), nil
}

// VerifyComposite reports whether result still shows the artwork of
// original outside the banner areas.
func (s Spec) VerifyComposite(result, original image.Image) bool {
	return !s.ArtworkRegion().HasChanged(result, original, 0)
}

// VerifyComposite is Spec.VerifyComposite for a built-in class. Unknown
// classes never verify.
func VerifyComposite(result, original image.Image, class Class) bool {
	spec, err := DefaultCatalog().Spec(class)
	if err != nil {
		return false
	}
	return spec.VerifyComposite(result, original)
}
