package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// ErrNoDuration is returned when neither the container nor any stream reports a duration.
var ErrNoDuration = errors.New("media duration unavailable")

// coverArtCodecs are still-image "video" streams that should not make a file count as video.
var coverArtCodecs = map[string]bool{"mjpeg": true, "png": true}

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index        int    `json:"index"`
	CodecName    string `json:"codec_name"`
	CodecType    string `json:"codec_type"`
	Duration     string `json:"duration"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	SampleRate   string `json:"sample_rate"`
	Channels     int    `json:"channels"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	NBFrames     string `json:"nb_frames"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Info is the subset of probe data the pipelines act on.
type Info struct {
	Duration float64
	FPS      float64 // avg_frame_rate
	RFPS     float64 // r_frame_rate
	Width    int
	Height   int
	HasVideo bool
	HasAudio bool
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	return ParseResult(output)
}

// ParseResult decodes raw ffprobe JSON.
func ParseResult(data []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// Info condenses the probe. Duration falls back from the container to the
// video frame count and then to the first audio stream.
func (r Result) Info() Info {
	var info Info
	video := r.firstStream("video")
	audio := r.firstStream("audio")

	if video != nil {
		info.FPS = ParseFrameRate(video.AvgFrameRate)
		info.RFPS = ParseFrameRate(video.RFrameRate)
		info.Width = video.Width
		info.Height = video.Height
	}
	info.HasAudio = audio != nil
	for _, s := range r.Streams {
		if strings.EqualFold(s.CodecType, "video") && !coverArtCodecs[strings.ToLower(s.CodecName)] {
			info.HasVideo = true
			break
		}
	}

	info.Duration = parseFloat(r.Format.Duration)
	if info.Duration <= 0 && video != nil && info.FPS > 0 {
		if frames := parseFloat(video.NBFrames); frames > 0 {
			info.Duration = frames / info.FPS
		}
	}
	if info.Duration <= 0 && audio != nil {
		info.Duration = parseFloat(audio.Duration)
	}
	return info
}

// IsVFR reports a variable frame rate: r_frame_rate and avg_frame_rate disagree by more than 0.01.
func (i Info) IsVFR() bool {
	if i.RFPS == 0 || i.FPS == 0 {
		return false
	}
	return math.Abs(i.RFPS-i.FPS) > 0.01
}

func (r Result) firstStream(codecType string) *Stream {
	for i := range r.Streams {
		if strings.EqualFold(r.Streams[i].CodecType, codecType) {
			return &r.Streams[i]
		}
	}
	return nil
}

// ParseFrameRate parses frame rate from ffprobe format (e.g., "30000/1001").
func ParseFrameRate(s string) float64 {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" || cleaned == "N/A" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(parsed) {
		return 0
	}
	return parsed
}
