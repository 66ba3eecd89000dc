package media

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/mediagram/logging"
)

// ChunkKind selects the codec set used by ExtractSegment.
type ChunkKind int

const (
	ChunkMP3 ChunkKind = iota
	ChunkVideo
	ChunkAudioMP4
)

// CommandRunner executes a finished argument list. Tests swap it out.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Runner wraps the ffmpeg binary.
type Runner struct {
	binary string
	log    logrus.FieldLogger
	run    CommandRunner
}

// NewRunner creates a Runner. An empty binary means "ffmpeg" on PATH.
func NewRunner(binary string, log logrus.FieldLogger) *Runner {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &Runner{binary: binary, log: logging.Component(log, "ffmpeg")}
}

// WithCommandRunner sets a custom command runner (for testing).
func (r *Runner) WithCommandRunner(run CommandRunner) *Runner {
	r.run = run
	return r
}

func (r *Runner) exec(ctx context.Context, args ...string) error {
	full := append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)
	r.log.WithField("args", strings.Join(full, " ")).Debug("executing ffmpeg")
	if r.run != nil {
		return r.run(ctx, r.binary, full...)
	}
	cmd := exec.CommandContext(ctx, r.binary, full...)
	if output, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// ConvertCFR re-encodes src at a constant frame rate, copying the audio.
func (r *Runner) ConvertCFR(ctx context.Context, src, dst string, fps float64) error {
	return r.exec(ctx, cfrArgs(src, dst, fps)...)
}

func cfrArgs(src, dst string, fps float64) []string {
	return []string{"-i", src, "-r", formatFloat(fps), "-fps_mode", "cfr", "-c:a", "copy", dst}
}

// ExtractSegment cuts [start,end) seconds out of src.
func (r *Runner) ExtractSegment(ctx context.Context, src, dst string, start, end float64, kind ChunkKind) error {
	if end <= start {
		return fmt.Errorf("extract segment: end %.3f not after start %.3f", end, start)
	}
	return r.exec(ctx, segmentArgs(src, dst, start, end, kind)...)
}

func segmentArgs(src, dst string, start, end float64, kind ChunkKind) []string {
	args := []string{"-i", src, "-ss", formatFloat(start), "-to", formatFloat(end)}
	switch kind {
	case ChunkMP3:
		args = append(args, "-vn", "-c:a", "libmp3lame", "-q:a", "2")
	case ChunkVideo:
		args = append(args, "-c:v", "libx264", "-preset", "fast", "-c:a", "aac")
	case ChunkAudioMP4:
		args = append(args, "-vn", "-c:a", "aac")
	}
	return append(args, dst)
}

// DecodeMono decodes the first audio stream of src to mono float32 PCM at sampleRate.
func (r *Runner) DecodeMono(ctx context.Context, src string, sampleRate int) ([]float32, error) {
	args := []string{"-hide_banner", "-loglevel", "error", "-i", src,
		"-vn", "-ac", "1", "-ar", strconv.Itoa(sampleRate), "-f", "f32le", "pipe:1"}
	r.log.WithField("src", src).Debug("decoding mono pcm")

	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("decode pcm: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("decode pcm: start ffmpeg: %w", err)
	}
	samples, readErr := ReadF32LE(stdout)
	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("decode pcm: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if readErr != nil {
		return nil, fmt.Errorf("decode pcm: %w", readErr)
	}
	return samples, nil
}

// ReadF32LE reads little-endian float32 samples until EOF. A trailing partial sample is dropped.
func ReadF32LE(rd io.Reader) ([]float32, error) {
	br := bufio.NewReaderSize(rd, 1<<16)
	var out []float32
	var buf [4]byte
	for {
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return out, nil
			}
			return out, err
		}
		out = append(out, math.Float32frombits(binary.LittleEndian.Uint32(buf[:])))
	}
}

// RenderStillWithMarker loops a still image for duration seconds and sweeps a 2px red
// line from the left axis edge (leftFrac of the width) to the right edge. Audio is muxed from audio.
func (r *Runner) RenderStillWithMarker(ctx context.Context, png, audio, dst string, duration, fps, leftFrac float64) error {
	if duration <= 0 {
		return fmt.Errorf("render marker video: %w", ErrNoDuration)
	}
	return r.exec(ctx, markerArgs(png, audio, dst, duration, fps, leftFrac)...)
}

func markerArgs(png, audio, dst string, duration, fps, leftFrac float64) []string {
	d := formatFloat(duration)
	x := fmt.Sprintf("W*%s+(W*%s)*t/%s-1", formatFloat(leftFrac), formatFloat(1-leftFrac), d)
	// The line source is taller than any figure; overlay clips it to the frame.
	filter := fmt.Sprintf("color=c=red:s=2x4096:r=%s:d=%s[line];[0:v][line]overlay=x='%s':y=0:eval=frame:shortest=1,format=yuv420p[v]",
		formatFloat(fps), d, x)
	return []string{
		"-loop", "1", "-framerate", formatFloat(fps), "-i", png,
		"-i", audio,
		"-filter_complex", filter,
		"-map", "[v]", "-map", "1:a?",
		"-t", d,
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-c:a", "aac", "-shortest",
		dst,
	}
}

// FrameSource yields successive frames. It returns io.EOF when done.
type FrameSource func() (*image.RGBA, error)

// EncodeFrames pipes rgb24 frames into ffmpeg and muxes the audio of audioSrc.
func (r *Runner) EncodeFrames(ctx context.Context, next FrameSource, width, height int, fps float64, audioSrc, dst string) error {
	args := encodeArgs(width, height, fps, audioSrc, dst)
	r.log.WithFields(logrus.Fields{"dst": dst, "size": fmt.Sprintf("%dx%d", width, height)}).Debug("encoding frames")

	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("encode frames: stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("encode frames: start ffmpeg: %w", err)
	}

	writeErr := writeFrames(stdin, next, width, height)
	closeErr := stdin.Close()
	waitErr := cmd.Wait()
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case writeErr != nil:
		return fmt.Errorf("encode frames: %w", writeErr)
	case closeErr != nil:
		return fmt.Errorf("encode frames: close stdin: %w", closeErr)
	case waitErr != nil:
		return fmt.Errorf("encode frames: %w: %s", waitErr, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func encodeArgs(width, height int, fps float64, audioSrc, dst string) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "rawvideo", "-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", formatFloat(fps),
		"-i", "pipe:0",
		"-i", audioSrc,
		"-map", "0:v", "-map", "1:a?",
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-c:a", "aac", "-shortest",
		dst,
	}
}

func writeFrames(w io.Writer, next FrameSource, width, height int) error {
	bw := bufio.NewWriterSize(w, width*height*3)
	row := make([]byte, width*3)
	for {
		frame, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if b := frame.Bounds(); b.Dx() != width || b.Dy() != height {
			return fmt.Errorf("frame size %dx%d, want %dx%d", b.Dx(), b.Dy(), width, height)
		}
		packRGB(frame, row, bw)
	}
	return bw.Flush()
}

func packRGB(img *image.RGBA, row []byte, w io.Writer) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		src := img.Pix[off : off+b.Dx()*4]
		for x := 0; x < b.Dx(); x++ {
			row[x*3] = src[x*4]
			row[x*3+1] = src[x*4+1]
			row[x*3+2] = src[x*4+2]
		}
		_, _ = w.Write(row)
	}
}

// OverlayOptions control the eventogram-on-video composite.
type OverlayOptions struct {
	Width, Height int
	// OverlayHeight is the scaled overlay height in pixels.
	OverlayHeight int
	Translucency  float64
	CRF           int
	Bitrate       string
}

// Overlay composites overlay onto the bottom of main. Audio is taken from main when present.
func (r *Runner) Overlay(ctx context.Context, main, overlay, dst string, opts OverlayOptions) error {
	if opts.Width <= 0 || opts.Height <= 0 || opts.OverlayHeight <= 0 {
		return fmt.Errorf("overlay: invalid geometry %dx%d/%d", opts.Width, opts.Height, opts.OverlayHeight)
	}
	return r.exec(ctx, overlayArgs(main, overlay, dst, opts)...)
}

func overlayArgs(main, overlay, dst string, opts OverlayOptions) []string {
	filter := fmt.Sprintf("[0:v]scale=%d:%d[base];[1:v]scale=%d:%d,format=rgba,colorchannelmixer=aa=%s[ovr];[base][ovr]overlay=x=0:y=H-h[v]",
		opts.Width, opts.Height, opts.Width, opts.OverlayHeight, formatFloat(opts.Translucency))
	args := []string{"-i", main, "-i", overlay, "-filter_complex", filter, "-map", "[v]", "-map", "0:a?", "-c:v", "libx264"}
	if opts.Bitrate != "" {
		args = append(args, "-b:v", opts.Bitrate)
	} else {
		args = append(args, "-crf", strconv.Itoa(opts.CRF))
	}
	return append(args, "-c:a", "copy", "-shortest", dst)
}

// TargetResolution picks the composite size. A base at least as wide as the overlay keeps its
// size, otherwise the base is scaled up to the overlay width and the height bumped to even.
func TargetResolution(baseW, baseH, ovrW, ovrH int) (int, int) {
	if baseW >= ovrW || baseW <= 0 {
		return baseW, baseH
	}
	h := baseH * ovrW / baseW
	if h%2 != 0 {
		h++
	}
	return ovrW, h
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
