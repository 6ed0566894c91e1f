package banner

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

// Class identifies a poster layout.
type Class string

const (
	ClassFilmWide  Class = "film"
	ClassFilmMini  Class = "film-mini"
	ClassTVEpisode Class = "episode"
	ClassTVSeason  Class = "season"
	ClassThreeD    Class = "3d"
)

// ErrUnknownClass is returned for classes missing from the catalog.
var ErrUnknownClass = errors.New("unknown poster class")

// ParseClass resolves a class name, accepting a few common aliases.
func ParseClass(value string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "film", "movie", "film-wide":
		return ClassFilmWide, nil
	case "film-mini", "mini":
		return ClassFilmMini, nil
	case "episode", "tv", "tv-episode":
		return ClassTVEpisode, nil
	case "season", "tv-season":
		return ClassTVSeason, nil
	case "3d", "film-3d":
		return ClassThreeD, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownClass, value)
}

// RegionName names a detection region within a class.
type RegionName string

const (
	RegionWide       RegionName = "wide"
	RegionMini       RegionName = "mini"
	RegionResolution RegionName = "resolution"
	RegionHDR        RegionName = "hdr"
	RegionHDRLegacy  RegionName = "hdr-legacy"
	RegionAudio      RegionName = "audio"
	// RegionBackdrop is the target of the TV backdrop overlay. It is never detected.
	RegionBackdrop RegionName = "backdrop"
)

// Template is an asset path relative to the template root.
type Template string

const (
	tmplFilmCheck4K        Template = "chk-4k.png"
	tmplFilmCheckMini4K    Template = "chk-mini-4k2.png"
	tmplFilmCheckHDRNew    Template = "chk_hdr_new.png"
	tmplFilmCheckDV        Template = "chk_dolby_vision.png"
	tmplFilmCheckHDR10     Template = "chk_hdr10.png"
	tmplFilmCheckHDRLegacy Template = "chk_hdr.png"
	tmplFilmCheckAtmos     Template = "chk_atmos.png"
	tmplFilmCheckDTSX      Template = "chk_dtsx.png"

	TemplateFilm4KWide Template = "4K-Template.png"
	TemplateFilm4KMini Template = "4K-mini-Template.png"
	TemplateFilmDV     Template = "dolby_vision.png"
	TemplateFilmHDR10  Template = "hdr10.png"
	TemplateFilmHDR    Template = "hdr.png"
	TemplateFilmAtmos  Template = "atmos.png"
	TemplateFilmDTSX   Template = "dtsx.png"

	tmplTVCheck4K    Template = "tv/chk_4k.png"
	tmplTVCheckHDR   Template = "tv/chk_hdr.png"
	tmplTVCheckDV    Template = "tv/chk_dv.png"
	tmplTVCheckHDR10 Template = "tv/chk_hdr10.png"
	tmplTVCheckAtmos Template = "tv/chk_atmos.png"
	tmplTVCheckDTSX  Template = "tv/chk_dts.png"

	TemplateTV4K       Template = "tv/4k.png"
	TemplateTVBackdrop Template = "tv/Background.png"
	TemplateTVDV       Template = "tv/dolby_vision.png"
	TemplateTVHDR10    Template = "tv/hdr10.png"
	TemplateTVHDR      Template = "tv/hdr.png"
	TemplateTVAtmos    Template = "tv/atmos.png"
	TemplateTVDTSX     Template = "tv/dtsx.png"

	tmpl3DCheckWide Template = "chk_3d_wide.png"
	tmpl3DCheckMini Template = "chk-3D-mini.png"

	Template3DWide Template = "3D-Template.png"
	Template3DMini Template = "3D-mini-Template.png"
)

// Region is a rectangle in canonical pixel coordinates together with the
// templates that indicate a banner there. A region matches when the distance
// to any reference is <= Cutoff.
type Region struct {
	Name       RegionName
	Rect       image.Rectangle
	Cutoff     int
	References []Template
}

// Overlays lists the banner images composited for each banner kind. Empty
// entries disable that banner for the class.
type Overlays struct {
	ResolutionWide Template
	ResolutionMini Template
	Atmos          Template
	DTSX           Template
	DolbyVision    Template
	HDR10Plus      Template
	HDR            Template
	ThreeDWide     Template
	ThreeDMini     Template
	Backdrop       Template
}

// Spec describes one poster class.
type Spec struct {
	Class Class
	Size  image.Point
	// Regions are evaluated in order; names are unique within a spec.
	Regions []Region
	// ResolutionRegions block the resolution banner when any is present.
	ResolutionRegions []RegionName
	// ThreeDRegions block the 3D banner when any is present.
	ThreeDRegions []RegionName
	AudioRegion   RegionName
	HDRRegion     RegionName
	// ChangeRegion restricts change comparison to a sub-rectangle that banners
	// never touch.
	ChangeRegion image.Rectangle
	Overlays     Overlays
	// ForceMini selects mini overlays regardless of flags.
	ForceMini bool
	// VerifyArtwork requires composites to leave ChangeRegion untouched
	// before they are uploaded.
	VerifyArtwork bool
}

// Region returns the named region.
func (s Spec) Region(name RegionName) (Region, bool) {
	for _, r := range s.Regions {
		if r.Name == name {
			return r, true
		}
	}
	return Region{}, false
}

// Templates returns every distinct reference template used by the class spec.
func (s Spec) Templates() []Template {
	seen := make(map[Template]struct{})
	var out []Template
	for _, r := range s.Regions {
		for _, t := range r.References {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// WithCutoff returns a copy of the class spec with every region cutoff replaced.
// Non-positive values leave the class spec untouched.
func (s Spec) WithCutoff(cutoff int) Spec {
	if cutoff <= 0 {
		return s
	}
	regions := make([]Region, len(s.Regions))
	copy(regions, s.Regions)
	for i := range regions {
		regions[i].Cutoff = cutoff
	}
	s.Regions = regions
	return s
}

// Catalog maps classes to their specs.
type Catalog map[Class]Spec

// Spec returns the class spec registered for class.
func (c Catalog) Spec(class Class) (Spec, error) {
	spec, ok := c[class]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}
	return spec, nil
}

// WithCutoffs overrides cutoffs for the film-sized and TV episode classes.
func (c Catalog) WithCutoffs(film, tv int) Catalog {
	out := make(Catalog, len(c))
	for class, spec := range c {
		switch class {
		case ClassFilmWide, ClassFilmMini, ClassTVSeason:
			spec = spec.WithCutoff(film)
		case ClassTVEpisode:
			spec = spec.WithCutoff(tv)
		}
		out[class] = spec
	}
	return out
}

const (
	filmCutoff = 7
	tvCutoff   = 10
)

var (
	filmSize = image.Pt(2000, 3000)
	tvSize   = image.Pt(1280, 720)
	size3D   = image.Pt(911, 1367)
)

func filmRegions(withAudio bool) []Region {
	regions := []Region{
		{Name: RegionWide, Rect: image.Rect(0, 0, 2000, 220), Cutoff: filmCutoff, References: []Template{tmplFilmCheck4K}},
		{Name: RegionMini, Rect: image.Rect(0, 0, 350, 275), Cutoff: filmCutoff, References: []Template{tmplFilmCheckMini4K}},
		{Name: RegionHDR, Rect: image.Rect(0, 1342, 493, 1608), Cutoff: filmCutoff, References: []Template{tmplFilmCheckHDRNew, tmplFilmCheckDV, tmplFilmCheckHDR10}},
		{Name: RegionHDRLegacy, Rect: image.Rect(0, 1342, 493, 1608), Cutoff: filmCutoff, References: []Template{tmplFilmCheckHDRLegacy}},
	}
	if withAudio {
		regions = append(regions, Region{Name: RegionAudio, Rect: image.Rect(0, 1608, 493, 1766), Cutoff: filmCutoff, References: []Template{tmplFilmCheckAtmos, tmplFilmCheckDTSX}})
	}
	return regions
}

func filmSpec(class Class, forceMini bool) Spec {
	return Spec{
		Class:             class,
		Size:              filmSize,
		Regions:           filmRegions(true),
		ResolutionRegions: []RegionName{RegionWide, RegionMini},
		AudioRegion:       RegionAudio,
		HDRRegion:         RegionHDR,
		ChangeRegion:      image.Rect(1000, 1500, 2000, 3000),
		Overlays: Overlays{
			ResolutionWide: TemplateFilm4KWide,
			ResolutionMini: TemplateFilm4KMini,
			Atmos:          TemplateFilmAtmos,
			DTSX:           TemplateFilmDTSX,
			DolbyVision:    TemplateFilmDV,
			HDR10Plus:      TemplateFilmHDR10,
			HDR:            TemplateFilmHDR,
		},
		ForceMini:     forceMini,
		VerifyArtwork: true,
	}
}

// DefaultCatalog returns the built-in poster class definitions.
func DefaultCatalog() Catalog {
	return Catalog{
		ClassFilmWide: filmSpec(ClassFilmWide, false),
		ClassFilmMini: filmSpec(ClassFilmMini, true),
		ClassTVSeason: {
			Class:             ClassTVSeason,
			Size:              filmSize,
			Regions:           filmRegions(false),
			ResolutionRegions: []RegionName{RegionWide, RegionMini},
			HDRRegion:         RegionHDR,
			ChangeRegion:      image.Rect(1000, 1500, 2000, 3000),
			Overlays: Overlays{
				ResolutionWide: TemplateFilm4KWide,
				ResolutionMini: TemplateFilm4KMini,
				DolbyVision:    TemplateFilmHDR,
				HDR10Plus:      TemplateFilmHDR,
				HDR:            TemplateFilmHDR,
			},
		},
		ClassTVEpisode: {
			Class: ClassTVEpisode,
			Size:  tvSize,
			Regions: []Region{
				{Name: RegionResolution, Rect: image.Rect(42, 45, 290, 245), Cutoff: tvCutoff, References: []Template{tmplTVCheck4K}},
				{Name: RegionHDR, Rect: image.Rect(32, 440, 303, 559), Cutoff: tvCutoff, References: []Template{tmplTVCheckHDR, tmplTVCheckDV, tmplTVCheckHDR10}},
				{Name: RegionAudio, Rect: image.Rect(32, 560, 306, 685), Cutoff: tvCutoff, References: []Template{tmplTVCheckAtmos, tmplTVCheckDTSX}},
			},
			ResolutionRegions: []RegionName{RegionResolution},
			AudioRegion:       RegionAudio,
			HDRRegion:         RegionHDR,
			ChangeRegion:      image.Rect(640, 360, 1280, 720),
			Overlays: Overlays{
				ResolutionWide: TemplateTV4K,
				Atmos:          TemplateTVAtmos,
				DTSX:           TemplateTVDTSX,
				DolbyVision:    TemplateTVDV,
				HDR10Plus:      TemplateTVHDR10,
				HDR:            TemplateTVHDR,
				Backdrop:       TemplateTVBackdrop,
			},
		},
		ClassThreeD: {
			Class: ClassThreeD,
			Size:  size3D,
			Regions: []Region{
				{Name: RegionWide, Rect: image.Rect(0, 0, 911, 100), Cutoff: 4, References: []Template{tmpl3DCheckWide}},
				{Name: RegionMini, Rect: image.Rect(0, 0, 301, 268), Cutoff: 14, References: []Template{tmpl3DCheckMini}},
			},
			ThreeDRegions: []RegionName{RegionWide, RegionMini},
			ChangeRegion:  image.Rect(455, 683, 911, 1367),
			Overlays: Overlays{
				ThreeDWide: Template3DWide,
				ThreeDMini: Template3DMini,
			},
		},
	}
}
