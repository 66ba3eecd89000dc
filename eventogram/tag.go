package eventogram

import (
	"context"
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/mediagram/media"
)

// ClassScore is one clipwise prediction.
type ClassScore struct {
	Label string
	Score float32
}

// TagResult is the audio tagging summary for a whole clip.
type TagResult struct {
	Top           []ClassScore
	EmbeddingSize int
}

// Tag posts the whole clip, prints the ten strongest clipwise classes and returns them.
func Tag(ctx context.Context, opts Options) (TagResult, error) {
	opts.setDefaults()
	var res TagResult

	probe, err := opts.Probe(ctx, opts.FFprobe, opts.Input)
	if err != nil {
		return res, fmt.Errorf("audio tagging: %w", err)
	}
	if probe.Info().Duration <= 0 {
		opts.Log.WithField("input", opts.Input).Warn("duration unavailable, tagging decoded audio as is")
	}
	samples, err := opts.Decode(ctx, opts.Input, opts.Settings.SampleRate)
	if err != nil {
		return res, fmt.Errorf("audio tagging: %w", err)
	}
	if len(samples) == 0 {
		return res, fmt.Errorf("audio tagging: %s: %w", opts.Input, media.ErrNoDuration)
	}

	resp, err := opts.Tagger.Tag(ctx, opts.ServiceURL, EncodeWAV(samples, opts.Settings.SampleRate), opts.tagParams())
	if err != nil {
		return res, fmt.Errorf("audio tagging: %w", err)
	}
	labels := Labels(resp.Labels)
	if opts.Settings.LabelsCSV != "" {
		if labels, err = LoadLabels(opts.Settings.LabelsCSV); err != nil {
			return res, fmt.Errorf("audio tagging: %w", err)
		}
	}

	res.Top = TopClipwise(resp.Clipwise, labels, 10)
	res.EmbeddingSize = len(resp.Embedding)
	opts.Log.WithFields(logrus.Fields{"classes": len(resp.Clipwise), "embedding": res.EmbeddingSize}).Info("audio tagging complete")

	tw := table.NewWriter()
	tw.SetOutputMirror(opts.Out)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Sound", "Probability"})
	for i, c := range res.Top {
		tw.AppendRow(table.Row{i + 1, c.Label, fmt.Sprintf("%.3f", c.Score)})
	}
	if res.EmbeddingSize > 0 {
		tw.AppendFooter(table.Row{"", "embedding", res.EmbeddingSize})
	}
	tw.Render()
	return res, nil
}

// TopClipwise returns the k highest scoring classes.
func TopClipwise(scores []float32, labels Labels, k int) []ClassScore {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	if k < len(idx) {
		idx = idx[:k]
	}
	out := make([]ClassScore, len(idx))
	for i, c := range idx {
		out[i] = ClassScore{Label: labels.Name(c), Score: scores[c]}
	}
	return out
}
