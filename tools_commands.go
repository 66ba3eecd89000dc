package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	cfg "github.com/maastricht-university/mediagram/config"
	"github.com/maastricht-university/mediagram/media"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <media>",
		Short: "Show duration, frame rate and resolution of a media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			res, err := media.Inspect(cmd.Context(), conf.Tools.FFprobe, args[0])
			if err != nil {
				return err
			}
			info := res.Info()
			resolution := ""
			if info.Width > 0 && info.Height > 0 {
				resolution = fmt.Sprintf("%dx%d", info.Width, info.Height)
			}
			rows := [][]string{
				{"Duration", fmt.Sprintf("%.3f s", info.Duration)},
				{"FPS (avg)", fmt.Sprintf("%.3f", info.FPS)},
				{"FPS (r)", fmt.Sprintf("%.3f", info.RFPS)},
				{"Variable frame rate", yesNo(info.IsVFR())},
				{"Resolution", resolution},
				{"Video", yesNo(info.HasVideo)},
				{"Audio", yesNo(info.HasAudio)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{textColumn("Property"), numberColumn("Value")}, rows))
			return nil
		},
	}
}

func toolRequirements(conf *cfg.Root) []media.Requirement {
	return []media.Requirement{
		{Name: "ffmpeg", Command: conf.Tools.FFmpeg, Description: "Decoding, chunking and video rendering"},
		{Name: "ffprobe", Command: conf.Tools.FFprobe, Description: "Media inspection"},
		{Name: "uvx", Command: conf.Tools.UVX, Description: "Runs WhisperX for the emotions pipeline"},
		{Name: "yt-dlp", Command: conf.Tools.YtDlp, Description: "URL downloads", Optional: true},
	}
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the external tools are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := media.CheckBinaries(toolRequirements(conf))
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				state := "ok"
				if !s.Available {
					state = "missing"
					if s.Optional {
						state = "missing (optional)"
					}
				}
				where := s.Path
				if where == "" {
					where = s.Detail
				}
				rows = append(rows, []string{s.Name, state, where, s.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{
				textColumn("Tool"), textColumn("Status"), pathColumn("Path"), textColumn("Used for"),
			}, rows))
			if missing := media.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}
