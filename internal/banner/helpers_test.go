package banner_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"testing/fstest"

	"plexbanner/internal/banner"
)

// pattern selects a two-tone layout. The six split layouts hash at least 32
// bits apart from each other and from a uniform image.
type pattern int

const (
	leftWhite pattern = iota
	topWhite
	checker
	rightWhite
	bottomWhite
	antiChecker
	// solid is uniformly black and hashes to zero.
	solid
)

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.NRGBA{A: 255}
	gray  = color.NRGBA{R: 128, G: 128, B: 128, A: 255}
)

func (p pattern) at(x, y, w, h int) color.NRGBA {
	left := x < w/2
	top := y < h/2
	var on bool
	switch p {
	case leftWhite:
		on = left
	case topWhite:
		on = top
	case checker:
		on = left == top
	case rightWhite:
		on = !left
	case bottomWhite:
		on = !top
	case antiChecker:
		on = left != top
	}
	if on {
		return white
	}
	return black
}

func fill(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func patternImage(p pattern, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, p.at(x, y, w, h))
		}
	}
	return img
}

// paint draws p into rect of dst.
func paint(dst *image.NRGBA, rect image.Rectangle, p pattern) {
	w, h := rect.Dx(), rect.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.SetNRGBA(rect.Min.X+x, rect.Min.Y+y, p.at(x, y, w, h))
		}
	}
}

// overlayImage returns a transparent canvas of size with p painted in rect.
func overlayImage(size image.Point, rect image.Rectangle, p pattern) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size.X, size.Y))
	paint(img, rect, p)
	return img
}

func pngBytes(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// Detection template patterns. Templates sharing a region use distinct
// patterns so each one is individually identifiable.
var templatePatterns = map[banner.Template]pattern{
	"chk-4k.png":           leftWhite,
	"chk-mini-4k2.png":     checker,
	"chk_hdr_new.png":      topWhite,
	"chk_dolby_vision.png": rightWhite,
	"chk_hdr10.png":        bottomWhite,
	"chk_hdr.png":          antiChecker,
	"chk_atmos.png":        leftWhite,
	"chk_dtsx.png":         checker,
	"tv/chk_4k.png":        leftWhite,
	"tv/chk_hdr.png":       topWhite,
	"tv/chk_dv.png":        rightWhite,
	"tv/chk_hdr10.png":     bottomWhite,
	"tv/chk_atmos.png":     leftWhite,
	"tv/chk_dts.png":       checker,
	"chk_3d_wide.png":      topWhite,
	"chk-3D-mini.png":      checker,
}

var (
	filmSize = image.Pt(2000, 3000)
	tvSize   = image.Pt(1280, 720)
)

// overlayRegions places each overlay's pattern in the area its banner
// occupies. Overlays are anchored at the origin, so they only need to extend
// to the bottom-right corner of that area.
var overlayRegions = map[banner.Template]struct {
	rect image.Rectangle
	p    pattern
}{
	banner.TemplateFilm4KWide: {image.Rect(0, 0, 2000, 220), leftWhite},
	banner.TemplateFilm4KMini: {image.Rect(0, 0, 350, 275), checker},
	banner.TemplateFilmDV:     {image.Rect(0, 1342, 493, 1608), rightWhite},
	banner.TemplateFilmHDR10:  {image.Rect(0, 1342, 493, 1608), bottomWhite},
	banner.TemplateFilmHDR:    {image.Rect(0, 1342, 493, 1608), topWhite},
	banner.TemplateFilmAtmos:  {image.Rect(0, 1608, 493, 1766), leftWhite},
	banner.TemplateFilmDTSX:   {image.Rect(0, 1608, 493, 1766), checker},
	banner.TemplateTV4K:       {image.Rect(42, 45, 290, 245), leftWhite},
	banner.TemplateTVBackdrop: {image.Rect(0, 0, 320, 720), solid},
	banner.TemplateTVDV:       {image.Rect(32, 440, 303, 559), rightWhite},
	banner.TemplateTVHDR10:    {image.Rect(32, 440, 303, 559), bottomWhite},
	banner.TemplateTVHDR:      {image.Rect(32, 440, 303, 559), topWhite},
	banner.TemplateTVAtmos:    {image.Rect(32, 560, 306, 685), leftWhite},
	banner.TemplateTVDTSX:     {image.Rect(32, 560, 306, 685), checker},
	banner.Template3DWide:     {image.Rect(0, 0, 911, 100), topWhite},
	banner.Template3DMini:     {image.Rect(0, 0, 301, 268), checker},
}

var (
	assetsOnce sync.Once
	assetFiles map[banner.Template][]byte
)

// assetFS returns the synthetic template tree, leaving out the named files.
func assetFS(t testing.TB, omit ...banner.Template) fstest.MapFS {
	t.Helper()
	assetsOnce.Do(func() {
		assetFiles = make(map[banner.Template][]byte)
		for tmpl, p := range templatePatterns {
			assetFiles[tmpl] = pngBytes(t, patternImage(p, 64, 64))
		}
		for tmpl, o := range overlayRegions {
			assetFiles[tmpl] = pngBytes(t, overlayImage(o.rect.Max, o.rect, o.p))
		}
	})
	skip := make(map[banner.Template]bool, len(omit))
	for _, tmpl := range omit {
		skip[tmpl] = true
	}
	fsys := fstest.MapFS{}
	for tmpl, data := range assetFiles {
		if !skip[tmpl] {
			fsys[string(tmpl)] = &fstest.MapFile{Data: data}
		}
	}
	return fsys
}

func cleanFilmPoster() *image.NRGBA {
	return fill(filmSize.X, filmSize.Y, gray)
}

func allFlags() banner.Flags {
	return banner.Flags{AudioPosters: true, HDRPosters: true, FourKPosters: true}
}
