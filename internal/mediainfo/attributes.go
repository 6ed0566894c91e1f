package mediainfo

import (
	"strings"

	"plexbanner/internal/banner"
)

// Attributes maps the probe result onto banner attributes. The first video
// stream decides resolution and HDR; any audio stream carrying an immersive
// format decides audio, Atmos winning over DTS:X.
func (r Result) Attributes() banner.MediaAttributes {
	var attrs banner.MediaAttributes
	if video, ok := r.VideoStream(); ok {
		attrs.Resolution = resolutionFor(video.Width, video.Height)
		attrs.HDR = hdrFor(video)
		attrs.ThreeD = isStereo(video)
	}
	for _, audio := range r.AudioStreams() {
		kind := audioFor(audio)
		if kind == banner.AudioDolbyAtmos {
			attrs.Audio = kind
			break
		}
		if kind == banner.AudioDTSX {
			attrs.Audio = kind
		}
	}
	return attrs
}

func resolutionFor(width, height int) banner.Resolution {
	switch {
	case width >= 3840 || height >= 2160:
		return banner.Resolution4K
	case width >= 1280 || height >= 720:
		return banner.ResolutionHD
	}
	return banner.ResolutionSD
}

func hdrFor(video Stream) banner.HDRKind {
	kind := banner.HDRNone
	for _, sd := range video.SideData {
		t := strings.ToLower(sd.Type)
		switch {
		case strings.Contains(t, "dovi"):
			return banner.HDRDolbyVision
		case strings.Contains(t, "hdr dynamic metadata") || strings.Contains(t, "2094"):
			kind = banner.HDR10Plus
		}
	}
	if kind != banner.HDRNone {
		return kind
	}
	switch strings.ToLower(video.ColorTransfer) {
	case "smpte2084", "arib-std-b67":
		return banner.HDR10
	}
	return banner.HDRNone
}

func audioFor(stream Stream) banner.AudioKind {
	if kind := banner.ParseAudio(stream.Profile); kind != banner.AudioOther {
		return kind
	}
	return banner.ParseAudio(stream.Tags.Title)
}

func isStereo(video Stream) bool {
	for _, sd := range video.SideData {
		if strings.EqualFold(sd.Type, "Stereo 3D") {
			return true
		}
	}
	return false
}
