package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/mediagram/media"
	"github.com/maastricht-university/mediagram/report"
	"github.com/maastricht-university/mediagram/whisperx"
)

// QuickRun is the single pass variant: one aligned transcript, mp3 chunks, one
// emotion call per sentence and a line chart report. Output lives in
// <dir>/<stem>_emotions_detected.
func (p *Pipeline) QuickRun(ctx context.Context, input string) (Summary, error) {
	runID := uuid.NewString()
	log := p.log.WithFields(logrus.Fields{"run_id": runID, "mode": "quick"})

	path, err := p.resolveInput(ctx, input)
	if err != nil {
		return Summary{}, err
	}
	stem := media.Stem(path)
	outDir := filepath.Join(filepath.Dir(path), stem+"_emotions_detected")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create output dir: %w", err)
	}
	sum := Summary{RunID: runID, MediaPath: path, OutputDir: outDir}

	out, err := p.runPass(ctx, whisperx.Request{Pass: whisperx.Alignment, Media: path, OutputDir: outDir, Stem: stem, Language: p.opts.Language})
	if err != nil {
		return sum, err
	}
	res, err := whisperx.LoadResult(out.JSON)
	if err != nil {
		return sum, err
	}
	if len(res.Segments) == 0 {
		return sum, fmt.Errorf("quick run %s: %w", path, errNoSegments)
	}

	spans := make([]span, len(res.Segments))
	for i, s := range res.Segments {
		spans[i] = span{Start: seconds(s.Start), End: seconds(s.End)}
	}
	chunks, err := cutChunks(ctx, p.ffmpeg, log, path, outDir, spans, 0, media.ChunkMP3, func(i int) string {
		return fmt.Sprintf("%s_segment_%03d.mp3", stem, i)
	})
	if err != nil {
		return sum, err
	}
	if err := WriteSCP(filepath.Join(outDir, stem+"_chunks.scp"), chunks); err != nil {
		return sum, err
	}

	dets, _, err := p.detect(ctx, log, chunks)
	if err != nil {
		return sum, err
	}
	sentences := make([]Sentence, len(res.Segments))
	for i, s := range res.Segments {
		sentences[i] = Sentence{Text: s.Text, Start: seconds(s.Start), End: seconds(s.End)}
	}
	entries, _ := pair(log, dets, sentences, 0)
	rows := make([]report.QuickRow, len(entries))
	for i := range entries {
		e := &entries[i]
		rows[i] = report.QuickRow{Start: e.StartS, End: e.EndS, Sentence: e.Sentence}
		for k := range e.Emotions {
			e.Emotions[k].Label = EnglishLabel(e.Emotions[k].Label)
			rows[i].Scores = append(rows[i].Scores, report.Score{Label: e.Emotions[k].Label, Score: e.Emotions[k].Score})
		}
	}

	jsonPath := filepath.Join(outDir, stem+"_emotions.json")
	aiPath := filepath.Join(outDir, stem+"_emotions_ai_friendly.json")
	if err := persistEmotions(jsonPath, aiPath, entries); err != nil {
		return sum, err
	}
	htmlPath := filepath.Join(outDir, stem+"_emotions.html")
	err = writePage(htmlPath, func(f *os.File) error {
		return report.QuickPage(f, report.QuickPageData{Source: filepath.Base(path), Rows: rows})
	})
	if err != nil {
		return sum, err
	}

	sum.Passes = []PassRecord{{
		Pass: string(whisperx.Alignment), Chunks: len(chunks), Sentences: len(entries),
		Files: []string{out.JSON, jsonPath, aiPath, htmlPath},
	}}
	sum.Reports = []string{htmlPath}
	log.WithField("report", htmlPath).Info("quick report written")
	p.maybeOpen(log, sum.Reports)
	return sum, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
