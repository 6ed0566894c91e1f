package mediainfo

import (
	"strings"

	"plexbanner/internal/banner"
)

// PlexStream is the subset of Plex stream metadata used for attributes.
type PlexStream struct {
	StreamType   int
	DisplayTitle string
	DOVIPresent  bool
	ColorTrc     string
}

// Plex stream types.
const (
	PlexStreamVideo = 1
	PlexStreamAudio = 2
)

// FromPlex derives attributes from the media resolution string and stream
// metadata reported by Plex.
func FromPlex(videoResolution string, streams []PlexStream) banner.MediaAttributes {
	attrs := banner.MediaAttributes{Resolution: banner.ParseResolution(videoResolution)}
	videoSeen := false
	for _, s := range streams {
		switch s.StreamType {
		case PlexStreamVideo:
			if videoSeen {
				continue
			}
			videoSeen = true
			attrs.HDR = plexHDR(s)
			attrs.ThreeD = strings.Contains(strings.ToLower(s.DisplayTitle), "3d")
		case PlexStreamAudio:
			kind := banner.ParseAudio(s.DisplayTitle)
			if kind == banner.AudioDolbyAtmos || attrs.Audio == banner.AudioOther {
				attrs.Audio = kind
			}
		}
	}
	return attrs
}

func plexHDR(s PlexStream) banner.HDRKind {
	if s.DOVIPresent {
		return banner.HDRDolbyVision
	}
	title := strings.ToLower(s.DisplayTitle)
	switch {
	case strings.Contains(title, "dolby vision") || strings.Contains(title, "dovi"):
		return banner.HDRDolbyVision
	case strings.Contains(title, "hdr10+"):
		return banner.HDR10Plus
	case strings.Contains(title, "hdr") || strings.Contains(title, "hlg"):
		return banner.HDR10
	}
	switch strings.ToLower(s.ColorTrc) {
	case "smpte2084", "arib-std-b67":
		return banner.HDR10
	}
	return banner.HDRNone
}
