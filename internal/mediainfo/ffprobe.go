package mediainfo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrProbe marks ffprobe execution or parse failures.
var ErrProbe = errors.New("ffprobe failed")

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index         int        `json:"index"`
	CodecName     string     `json:"codec_name"`
	CodecType     string     `json:"codec_type"`
	Profile       string     `json:"profile"`
	Width         int        `json:"width"`
	Height        int        `json:"height"`
	ColorTransfer string     `json:"color_transfer"`
	Channels      int        `json:"channels"`
	SideData      []SideData `json:"side_data_list"`
	Tags          Tags       `json:"tags"`
}

// SideData is one entry of a stream's side_data_list.
type SideData struct {
	Type string `json:"side_data_type"`
}

// Tags holds the stream tags that carry format hints.
type Tags struct {
	Title    string `json:"title"`
	Language string `json:"language"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

// Prober inspects a media file.
type Prober interface {
	Probe(ctx context.Context, path string) (Result, error)
}

// FFprobe runs the ffprobe binary.
type FFprobe struct {
	Binary  string
	Timeout time.Duration
}

// Probe implements Prober.
func (f FFprobe) Probe(ctx context.Context, path string) (Result, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	return Inspect(ctx, f.Binary, path)
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, fmt.Errorf("%w: empty path", ErrProbe)
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{}, fmt.Errorf("%w: %s: %s", ErrProbe, path, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return Result{}, fmt.Errorf("%w: %s: %w", ErrProbe, path, err)
	}
	return Parse(output)
}

// Parse decodes raw ffprobe JSON.
func Parse(data []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("%w: parse: %w", ErrProbe, err)
	}
	return result, nil
}

// VideoStream returns the first video stream.
func (r Result) VideoStream() (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			return stream, true
		}
	}
	return Stream{}, false
}

// AudioStreams returns every audio stream in container order.
func (r Result) AudioStreams() []Stream {
	var out []Stream
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			out = append(out, stream)
		}
	}
	return out
}
