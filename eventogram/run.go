// Package eventogram turns audio tagging output into spectrogram/eventogram images,
// CSV event tables and marker videos.
package eventogram

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/mediagram/clients"
	"github.com/maastricht-university/mediagram/config"
	"github.com/maastricht-university/mediagram/dsp"
	"github.com/maastricht-university/mediagram/logging"
	"github.com/maastricht-university/mediagram/media"
)

var (
	// ErrNoFrames means every tagging chunk failed or the audio was too short to chunk.
	ErrNoFrames = errors.New("no framewise output")
	// ErrInsufficientDisk is returned when the output filesystem is below the free-space floor.
	ErrInsufficientDisk = errors.New("insufficient disk space")
)

const (
	defaultVideoFPS = 24
	defaultWidth    = 1280
	defaultHeight   = 720
)

// Tagger is the audio tagging service.
type Tagger interface {
	Tag(ctx context.Context, url string, wav []byte, params clients.TagParams) (*clients.TagResp, error)
}

// Options configure one eventogram run.
type Options struct {
	Input      string
	Settings   config.Eventogram
	Dynamic    bool
	ServiceURL string
	FFprobe    string
	FFmpeg     *media.Runner
	Tagger     Tagger
	Log        logrus.FieldLogger
	// Out receives the audio tagging table.
	Out io.Writer

	// Seams for tests; nil uses the real implementations.
	FreeBytes func(dir string) (uint64, error)
	Probe     func(ctx context.Context, binary, path string) (media.Result, error)
	Decode    func(ctx context.Context, src string, sampleRate int) ([]float32, error)
}

// Outputs lists the files a run produced.
type Outputs struct {
	PNG     string
	CSV     string
	Video   string
	Overlay string
}

func (o *Options) setDefaults() {
	o.Log = logging.Component(o.Log, "eventogram")
	if o.FFmpeg == nil {
		o.FFmpeg = media.NewRunner("", o.Log)
	}
	if o.FreeBytes == nil {
		o.FreeBytes = media.FreeBytes
	}
	if o.Probe == nil {
		o.Probe = media.Inspect
	}
	if o.Decode == nil {
		o.Decode = o.FFmpeg.DecodeMono
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
}

func (o Options) tagParams() clients.TagParams {
	return clients.TagParams{
		ModelType:      o.Settings.ModelType,
		CheckpointPath: o.Settings.CheckpointPath,
		SampleRate:     o.Settings.SampleRate,
		WindowSize:     o.Settings.WindowSize,
		HopSize:        o.Settings.HopSize,
		MelBins:        o.Settings.MelBins,
		FMin:           o.Settings.FMin,
		FMax:           o.Settings.FMax,
		CUDA:           o.Settings.CUDA,
	}
}

// BasePath is <dir>/<stem>_audioset_tagging_cnn for input.
func BasePath(input string) string {
	return media.SiblingPath(input, "_audioset_tagging_cnn")
}

// Run executes sound event detection: tagging, figure, CSV, eventogram video and,
// for video sources, the overlay.
func Run(ctx context.Context, opts Options) (Outputs, error) {
	opts.setDefaults()
	log := opts.Log.WithFields(logrus.Fields{"run_id": uuid.NewString(), "input": opts.Input})
	started := time.Now()

	base := BasePath(opts.Input)
	out := Outputs{PNG: base + ".png", CSV: base + ".csv", Video: base + "_eventogram.mp4"}
	if opts.Dynamic {
		out.Video = base + "_eventogram_dynamic.mp4"
	}
	dir := filepath.Dir(opts.Input)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return out, fmt.Errorf("eventogram: ensure output dir: %w", err)
	}

	free, err := opts.FreeBytes(dir)
	if err != nil {
		return out, fmt.Errorf("eventogram: %w", err)
	}
	if free < opts.Settings.MinFreeBytes {
		return out, fmt.Errorf("eventogram: %w: %.2f GB free", ErrInsufficientDisk, float64(free)/1e9)
	}

	probe, err := opts.Probe(ctx, opts.FFprobe, opts.Input)
	if err != nil {
		return out, fmt.Errorf("eventogram: %w", err)
	}
	info := probe.Info()
	if info.Duration <= 0 {
		return out, fmt.Errorf("eventogram: %s: %w", opts.Input, media.ErrNoDuration)
	}
	if info.HasVideo && (info.Width == 0 || info.Height == 0) {
		log.Warnf("video dimensions unknown, assuming %dx%d", defaultWidth, defaultHeight)
		info.Width, info.Height = defaultWidth, defaultHeight
	}
	log.WithFields(logrus.Fields{"duration": info.Duration, "fps": info.FPS, "video": info.HasVideo}).Info("probed input")

	source := opts.Input
	if info.HasVideo && info.IsVFR() {
		tmp := filepath.Join(dir, "temp_cfr_"+media.Stem(opts.Input)+".mp4")
		log.WithFields(logrus.Fields{"r_fps": info.RFPS, "avg_fps": info.FPS}).Warn("variable frame rate, re-encoding to constant")
		if err := opts.FFmpeg.ConvertCFR(ctx, opts.Input, tmp, info.FPS); err != nil {
			return out, fmt.Errorf("eventogram: %w", err)
		}
		defer func() {
			if err := os.Remove(tmp); err != nil {
				log.WithError(err).Warn("failed to delete temporary CFR video")
			}
		}()
		source = tmp
	}

	samples, err := opts.Decode(ctx, source, opts.Settings.SampleRate)
	if err != nil {
		return out, fmt.Errorf("eventogram: %w", err)
	}
	fw, labels, err := tagChunks(ctx, opts, log, samples)
	if err != nil {
		return out, err
	}

	fps := FramesPerSecond(opts.Settings.SampleRate, opts.Settings.HopSize)
	fw = fw.PadTo(ExpectedFrames(info.Duration, fps))
	data := FigureData{
		LogSpec:   dsp.LogMagnitude(dsp.STFT(samples, opts.Settings.WindowSize, opts.Settings.HopSize)),
		Framewise: fw,
		Labels:    labels,
		FPS:       fps,
		TopK:      opts.Settings.TopK,
	}

	img, layout := data.Figure(FigureWidth, FigureHeight)
	if err := writePNG(out.PNG, img); err != nil {
		return out, err
	}
	log.WithField("path", out.PNG).Info("saved figure")
	if err := writeCSVFile(out.CSV, fw, labels, fps, opts.Settings.Threshold); err != nil {
		return out, err
	}
	log.WithField("path", out.CSV).Info("saved event table")

	videoFPS := info.FPS
	if videoFPS <= 0 {
		videoFPS = defaultVideoFPS
	}
	if opts.Dynamic {
		r := NewFrameRenderer(data, FigureWidth, FigureHeight, opts.Settings.WindowDuration, opts.Settings.AdaptiveWindow)
		err = opts.FFmpeg.EncodeFrames(ctx, r.Source(info.Duration, videoFPS), FigureWidth, FigureHeight, videoFPS, source, out.Video)
		log.WithField("windows", r.Cached()).Debug("dynamic windows rendered")
	} else {
		err = opts.FFmpeg.RenderStillWithMarker(ctx, out.PNG, source, out.Video, info.Duration, videoFPS, layout.LeftFraction())
	}
	if err != nil {
		return out, fmt.Errorf("eventogram: render video: %w", err)
	}
	log.WithField("path", out.Video).Info("saved eventogram video")

	if info.HasVideo {
		out.Overlay = strings.TrimSuffix(out.Video, ".mp4") + "_overlay.mp4"
		w, h := media.TargetResolution(info.Width, info.Height, FigureWidth, FigureHeight)
		ovr := media.OverlayOptions{
			Width:         w,
			Height:        h,
			OverlayHeight: evenDown(int(float64(h) * opts.Settings.OverlaySize)),
			Translucency:  opts.Settings.Translucency,
			CRF:           opts.Settings.CRF,
			Bitrate:       opts.Settings.Bitrate,
		}
		if err := opts.FFmpeg.Overlay(ctx, source, out.Video, out.Overlay, ovr); err != nil {
			return out, fmt.Errorf("eventogram: %w", err)
		}
		log.WithField("path", out.Overlay).Info("saved overlay video")
	}

	log.WithField("elapsed", time.Since(started).Round(time.Millisecond)).Info("eventogram complete")
	return out, nil
}

// tagChunks posts each planned chunk to the tagging service. A failed chunk is skipped.
func tagChunks(ctx context.Context, opts Options, log logrus.FieldLogger, samples []float32) (Framewise, Labels, error) {
	var labels Labels
	if opts.Settings.LabelsCSV != "" {
		l, err := LoadLabels(opts.Settings.LabelsCSV)
		if err != nil {
			return nil, nil, fmt.Errorf("eventogram: %w", err)
		}
		labels = l
	}

	chunks := PlanChunks(len(samples), opts.Settings.SampleRate, opts.Settings.ChunkSeconds)
	var parts []Framewise
	for i, ch := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		wav := EncodeWAV(samples[ch.Start:ch.End], opts.Settings.SampleRate)
		resp, err := opts.Tagger.Tag(ctx, opts.ServiceURL, wav, opts.tagParams())
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			log.WithError(err).WithField("chunk", i).Warn("tagging chunk failed, skipping")
			continue
		}
		if labels == nil && len(resp.Labels) > 0 {
			labels = resp.Labels
		}
		parts = append(parts, Framewise(resp.Framewise))
		log.WithFields(logrus.Fields{"chunk": i, "of": len(chunks), "frames": len(resp.Framewise)}).Debug("tagged chunk")
	}
	fw := Concat(parts...)
	if len(fw) == 0 {
		return nil, nil, fmt.Errorf("eventogram: %w", ErrNoFrames)
	}
	return fw, labels, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("eventogram: create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("eventogram: encode png: %w", err)
	}
	return f.Close()
}

func writeCSVFile(path string, fw Framewise, labels Labels, fps int, threshold float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("eventogram: create csv: %w", err)
	}
	if err := WriteCSV(f, fw, labels, fps, len(fw), threshold); err != nil {
		f.Close()
		return fmt.Errorf("eventogram: write csv: %w", err)
	}
	return f.Close()
}

func evenDown(n int) int {
	return n - n%2
}
