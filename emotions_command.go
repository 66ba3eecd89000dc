package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maastricht-university/mediagram/orchestrator"
	"github.com/maastricht-university/mediagram/whisperx"
)

func newEmotionsCommand(ctx *commandContext) *cobra.Command {
	var (
		lang        string
		noAlign     bool
		noDiarize   bool
		minSpeakers int
		maxSpeakers int
		model       string
		quick       bool
		open        bool
	)

	cmd := &cobra.Command{
		Use:   "emotions <media|url>",
		Short: "Transcribe with WhisperX and build speech emotion reports",
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

			language, err := whisperx.NormalizeLanguage(lang)
			if err != nil {
				return err
			}
			run := *conf
			fl := cmd.Flags()
			if fl.Changed("model") {
				run.WhisperX.Model = model
			}
			if fl.Changed("min_speakers") {
				run.WhisperX.MinSpeakers = minSpeakers
			}
			if fl.Changed("max_speakers") {
				run.WhisperX.MaxSpeakers = maxSpeakers
			}
			if err := run.Validate(); err != nil {
				return err
			}

			p := orchestrator.NewPipeline(&run, log, orchestrator.Options{
				Language:  language,
				NoAlign:   noAlign,
				NoDiarize: noDiarize,
				Open:      open,
			})
			var sum orchestrator.Summary
			if quick {
				sum, err = p.QuickRun(cmd.Context(), args[0])
			} else {
				sum, err = p.Run(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&lang, "language", "", "Spoken language (BCP 47), detected when empty")
	fl.BoolVar(&noAlign, "no_align", false, "Stop after transcription")
	fl.BoolVar(&noDiarize, "no_diarize", false, "Stop after alignment")
	fl.IntVar(&minSpeakers, "min_speakers", 0, "Minimum number of speakers for diarization")
	fl.IntVar(&maxSpeakers, "max_speakers", 0, "Maximum number of speakers for diarization")
	fl.StringVar(&model, "model", "", "WhisperX model (overrides whisperx.model)")
	fl.BoolVar(&quick, "quick", false, "Single aligned pass with mp3 chunks and a line chart report")
	fl.BoolVar(&open, "open", false, "Open the report in the default browser")
	return cmd
}

func printSummary(w io.Writer, sum orchestrator.Summary) {
	rows := make([][]string, 0, len(sum.Passes))
	for _, p := range sum.Passes {
		status := "done"
		if p.Skipped {
			status = "skipped (completed earlier)"
		}
		files := make([]string, len(p.Files))
		for i, f := range p.Files {
			files[i] = filepath.Base(f)
		}
		rows = append(rows, []string{p.Pass, status, strconv.Itoa(p.Chunks), strconv.Itoa(p.Sentences), strings.Join(files, "\n")})
	}
	fmt.Fprintf(w, "Run %s\nMedia:  %s\nOutput: %s\n", sum.RunID, sum.MediaPath, sum.OutputDir)
	fmt.Fprintln(w, renderTable([]column{
		textColumn("Pass"), textColumn("Status"), numberColumn("Chunks"), numberColumn("Sentences"), pathColumn("Files"),
	}, rows))
	for _, r := range sum.Reports {
		fmt.Fprintf(w, "Report: %s\n", r)
	}
}
