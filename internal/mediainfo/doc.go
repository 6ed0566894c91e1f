// Package mediainfo derives banner media attributes from a file on disk.
//
// Inspect runs ffprobe and decodes its JSON output; Result.Attributes maps
// the streams onto banner.MediaAttributes (resolution, HDR format, immersive
// audio). FromPlex builds the same attributes from the stream metadata a
// Plex server reports, for installs where the media files are not mounted
// locally.
package mediainfo
