package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maastricht-university/mediagram/clients"
	cfg "github.com/maastricht-university/mediagram/config"
	"github.com/maastricht-university/mediagram/eventogram"
	"github.com/maastricht-university/mediagram/media"
)

const (
	modeSoundEvents = "sound_event_detection"
	modeTagging     = "audio_tagging"
)

type eventogramFlags struct {
	mode           string
	sampleRate     int
	windowSize     int
	hopSize        int
	melBins        int
	fmin           int
	fmax           int
	modelType      string
	checkpointPath string
	cuda           bool
	translucency   float64
	overlaySize    float64
	dynamic        bool
	crf            int
	bitrate        string
	windowDuration float64
	adaptive       bool
}

func newEventogramCommand(ctx *commandContext) *cobra.Command {
	var f eventogramFlags

	cmd := &cobra.Command{
		Use:   "eventogram <media>",
		Short: "Tag sound events and render an eventogram image, CSV and video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			settings := conf.Eventogram
			fl := cmd.Flags()
			set := func(name string, apply func()) {
				if fl.Changed(name) {
					apply()
				}
			}
			set("sample_rate", func() { settings.SampleRate = f.sampleRate })
			set("window_size", func() { settings.WindowSize = f.windowSize })
			set("hop_size", func() { settings.HopSize = f.hopSize })
			set("mel_bins", func() { settings.MelBins = f.melBins })
			set("fmin", func() { settings.FMin = f.fmin })
			set("fmax", func() { settings.FMax = f.fmax })
			set("model_type", func() { settings.ModelType = f.modelType })
			set("checkpoint_path", func() { settings.CheckpointPath = f.checkpointPath })
			set("cuda", func() { settings.CUDA = f.cuda })
			set("translucency", func() { settings.Translucency = f.translucency })
			set("overlay_size", func() { settings.OverlaySize = f.overlaySize })
			set("crf", func() { settings.CRF = f.crf })
			set("bitrate", func() { settings.Bitrate = f.bitrate })
			set("window_duration", func() { settings.WindowDuration = f.windowDuration })
			set("use_adaptive_window", func() { settings.AdaptiveWindow = f.adaptive })

			check := *conf
			check.Eventogram = settings
			if err := check.Validate(); err != nil {
				return err
			}
			if _, err := os.Stat(args[0]); err != nil {
				return fmt.Errorf("input: %w", err)
			}

			opts := eventogram.Options{
				Input:      args[0],
				Settings:   settings,
				Dynamic:    f.dynamic,
				ServiceURL: conf.Services.Tagging.URL,
				FFprobe:    conf.Tools.FFprobe,
				FFmpeg:     media.NewRunner(conf.Tools.FFmpeg, log),
				Tagger:     clients.NewHTTP(conf.ServiceTimeout()),
				Log:        log,
				Out:        cmd.OutOrStdout(),
			}

			switch f.mode {
			case modeTagging:
				_, err := eventogram.Tag(cmd.Context(), opts)
				return err
			case modeSoundEvents:
				out, err := eventogram.Run(cmd.Context(), opts)
				if err != nil {
					return err
				}
				rows := [][]string{{"eventogram", out.PNG}, {"events", out.CSV}, {"video", out.Video}}
				if out.Overlay != "" {
					rows = append(rows, []string{"overlay", out.Overlay})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{textColumn("Output"), pathColumn("Path")}, rows))
				return nil
			default:
				return fmt.Errorf("--mode must be %s or %s, got %q", modeSoundEvents, modeTagging, f.mode)
			}
		},
	}

	def := cfg.Default().Eventogram
	fl := cmd.Flags()
	fl.StringVar(&f.mode, "mode", modeSoundEvents, "sound_event_detection or audio_tagging")
	fl.IntVar(&f.sampleRate, "sample_rate", def.SampleRate, "Model sample rate")
	fl.IntVar(&f.windowSize, "window_size", def.WindowSize, "STFT window size")
	fl.IntVar(&f.hopSize, "hop_size", def.HopSize, "STFT hop size")
	fl.IntVar(&f.melBins, "mel_bins", def.MelBins, "Mel bins")
	fl.IntVar(&f.fmin, "fmin", def.FMin, "Minimum frequency")
	fl.IntVar(&f.fmax, "fmax", def.FMax, "Maximum frequency")
	fl.StringVar(&f.modelType, "model_type", def.ModelType, "Tagging model type")
	fl.StringVar(&f.checkpointPath, "checkpoint_path", def.CheckpointPath, "Model checkpoint path on the service host")
	fl.BoolVar(&f.cuda, "cuda", def.CUDA, "Run the model on CUDA")
	fl.Float64Var(&f.translucency, "translucency", def.Translucency, "Overlay opacity in [0,1]")
	fl.Float64Var(&f.overlaySize, "overlay_size", def.OverlaySize, "Overlay height as a fraction of the video height")
	fl.BoolVar(&f.dynamic, "dynamic_eventogram", false, "Render a scrolling eventogram instead of a static one")
	fl.IntVar(&f.crf, "crf", def.CRF, "x264 CRF for the overlay video")
	fl.StringVar(&f.bitrate, "bitrate", def.Bitrate, "Video bitrate for the overlay, overrides --crf")
	fl.Float64Var(&f.windowDuration, "window_duration", def.WindowDuration, "Dynamic eventogram window in seconds")
	fl.BoolVar(&f.adaptive, "use_adaptive_window", def.AdaptiveWindow, "Size dynamic windows by spectral change")
	return cmd
}
