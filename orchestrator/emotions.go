package orchestrator

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/asticode/go-astisub"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/mediagram/clients"
	"github.com/maastricht-university/mediagram/report"
)

// EmotionService classifies the emotion of one media chunk.
type EmotionService interface {
	Emotion(ctx context.Context, url, audioPath, granularity string) (*clients.EmoResp, error)
}

// detect calls the emotion service once per chunk, in chunk order.
func (p *Pipeline) detect(ctx context.Context, log logrus.FieldLogger, chunks []Chunk) ([]Detection, []clients.EmoResp, error) {
	url := p.cfg.Services.Emotion.URL
	if url == "" {
		return nil, nil, fmt.Errorf("emotion detection: services.emotion.url is not set")
	}
	out := make([]Detection, 0, len(chunks))
	raw := make([]clients.EmoResp, 0, len(chunks))
	for _, c := range chunks {
		resp, err := p.emo.Emotion(ctx, url, c.Path, p.cfg.Emotions.Granularity)
		if err != nil {
			return nil, nil, fmt.Errorf("emotion detection %s: %w", c.Key, err)
		}
		resp.Key = c.Key
		raw = append(raw, *resp)
		d := Detection{Chunk: c}
		for _, s := range resp.Pairs() {
			d.Scores = append(d.Scores, EmotionScore{Label: s.Label, Score: s.Score})
		}
		out = append(out, d)
	}
	log.WithField("chunks", len(out)).Info("emotions detected")
	return out, raw, nil
}

// Sentence is one subtitle cue.
type Sentence struct {
	Text       string
	Start, End time.Duration
}

// ReadSentences loads the cues of an SRT file. Multi-line cues are joined with a space.
func ReadSentences(path string) ([]Sentence, error) {
	subs, err := astisub.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subtitles %s: %w", path, err)
	}
	out := make([]Sentence, 0, len(subs.Items))
	for _, it := range subs.Items {
		lines := make([]string, 0, len(it.Lines))
		for _, l := range it.Lines {
			if s := strings.TrimSpace(l.String()); s != "" {
				lines = append(lines, s)
			}
		}
		out = append(out, Sentence{Text: strings.Join(lines, " "), Start: it.StartAt, End: it.EndAt})
	}
	return out, nil
}

// pair matches detections to sentences by chunk index. It stops at the first
// chunk that has no sentence, since every later pairing would be shifted.
func pair(log logrus.FieldLogger, dets []Detection, sentences []Sentence, first int) ([]SentenceEmotions, []report.Row) {
	entries := make([]SentenceEmotions, 0, len(dets))
	rows := make([]report.Row, 0, len(dets))
	for _, d := range dets {
		i := d.Chunk.Index - first
		if i < 0 || i >= len(sentences) {
			log.WithFields(logrus.Fields{"chunk": d.Chunk.Key, "sentences": len(sentences)}).
				Warn("no sentence for chunk, stopping")
			break
		}
		text := sentences[i].Text
		e := SentenceEmotions{
			Sentence: text,
			StartS:   d.Chunk.Start.Seconds(),
			EndS:     d.Chunk.End.Seconds(),
		}
		row := report.Row{Index: d.Chunk.Index, Sentence: text, Start: d.Chunk.Start, End: d.Chunk.End, Chunk: filepath.Base(d.Chunk.Path)}
		for _, s := range d.Scores {
			e.Emotions = append(e.Emotions, EmotionScore{Label: s.Label, Score: round3(s.Score)})
			row.Scores = append(row.Scores, report.Score{Label: s.Label, Score: s.Score})
		}
		entries = append(entries, e)
		rows = append(rows, row)
	}
	return entries, rows
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

// EnglishLabel returns the part of an emotion2vec label after the last "/".
func EnglishLabel(label string) string {
	if i := strings.LastIndex(label, "/"); i >= 0 {
		return label[i+1:]
	}
	return label
}

// flatKey is the AI friendly key for a label: English part, angle brackets dropped.
func flatKey(label string) string {
	return strings.NewReplacer("<", "", ">", "").Replace(EnglishLabel(label))
}
