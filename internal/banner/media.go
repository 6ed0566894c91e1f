package banner

import "strings"

// Resolution is the coarse video resolution of an item.
type Resolution int

const (
	ResolutionSD Resolution = iota
	ResolutionHD
	Resolution4K
)

func (r Resolution) String() string {
	switch r {
	case Resolution4K:
		return "4k"
	case ResolutionHD:
		return "hd"
	default:
		return "sd"
	}
}

// ParseResolution maps media-server resolution strings ("4k", "2160", "1080",
// "720p", "sd") to a Resolution. Unrecognized values are SD.
func ParseResolution(value string) Resolution {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.TrimSuffix(v, "p")
	switch v {
	case "4k", "2160", "uhd":
		return Resolution4K
	case "hd", "1080", "720", "fhd":
		return ResolutionHD
	}
	return ResolutionSD
}

// HDRKind is the dynamic range format of an item.
type HDRKind int

const (
	HDRNone HDRKind = iota
	HDR10
	HDR10Plus
	HDRDolbyVision
)

func (h HDRKind) String() string {
	switch h {
	case HDR10:
		return "hdr10"
	case HDR10Plus:
		return "hdr10+"
	case HDRDolbyVision:
		return "dolby vision"
	default:
		return "none"
	}
}

// ParseHDR maps a free-form HDR description to an HDRKind. Empty, "none",
// and "unknown" are HDRNone; any other description that is neither Dolby
// Vision nor HDR10+ is treated as generic HDR.
func ParseHDR(value string) HDRKind {
	v := strings.ToLower(strings.TrimSpace(value))
	switch {
	case v == "", v == "none", v == "unknown", v == "sdr":
		return HDRNone
	case strings.Contains(v, "dolby vision"), strings.Contains(v, "dovi"), v == "dv":
		return HDRDolbyVision
	case strings.Contains(v, "hdr10+"), strings.Contains(v, "hdr10plus"), strings.Contains(v, "smpte st 2094"):
		return HDR10Plus
	}
	return HDR10
}

// AudioKind is the immersive audio format of an item.
type AudioKind int

const (
	AudioOther AudioKind = iota
	AudioDolbyAtmos
	AudioDTSX
)

func (a AudioKind) String() string {
	switch a {
	case AudioDolbyAtmos:
		return "dolby atmos"
	case AudioDTSX:
		return "dts:x"
	default:
		return "other"
	}
}

// ParseAudio maps a free-form audio description to an AudioKind.
func ParseAudio(value string) AudioKind {
	v := strings.ToLower(strings.TrimSpace(value))
	switch {
	case strings.Contains(v, "atmos"):
		return AudioDolbyAtmos
	case strings.Contains(v, "dts:x"), strings.Contains(v, "dts-x"), strings.Contains(v, "xll x"):
		return AudioDTSX
	}
	return AudioOther
}

// MediaAttributes are the technical attributes that drive banner decisions.
type MediaAttributes struct {
	Resolution Resolution
	HDR        HDRKind
	Audio      AudioKind
	ThreeD     bool
}

// Label is a metadata tag attached to the item on the media server.
type Label string

const (
	LabelDolbyVision Label = "Dolby Vision"
	LabelHDR10Plus   Label = "HDR10+"
	LabelHDR         Label = "HDR"
	LabelDolbyAtmos  Label = "Dolby Atmos"
	LabelDTSX        Label = "DTS:X"
)

// Labels returns the metadata labels implied by the attributes, HDR first.
func (m MediaAttributes) Labels() []Label {
	var labels []Label
	switch m.HDR {
	case HDRDolbyVision:
		labels = append(labels, LabelDolbyVision)
	case HDR10Plus:
		labels = append(labels, LabelHDR10Plus)
	case HDR10:
		labels = append(labels, LabelHDR)
	}
	switch m.Audio {
	case AudioDolbyAtmos:
		labels = append(labels, LabelDolbyAtmos)
	case AudioDTSX:
		labels = append(labels, LabelDTSX)
	}
	return labels
}
