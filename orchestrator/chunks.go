package orchestrator

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/mediagram/media"
	"github.com/maastricht-university/mediagram/whisperx"
)

// span is a [start,end) range to cut.
type span struct {
	Start, End time.Duration
}

func segmentKey(i int) string { return fmt.Sprintf("segment_%03d", i) }

// cutChunks extracts one file per span. name maps the chunk index to a file name
// inside dir. Empty or inverted spans are skipped with a warning; the remaining
// chunks keep their index so that they still pair with the right sentence.
func cutChunks(ctx context.Context, ff *media.Runner, log logrus.FieldLogger, src, dir string, spans []span, first int, kind media.ChunkKind, name func(int) string) ([]Chunk, error) {
	chunks := make([]Chunk, 0, len(spans))
	for i, s := range spans {
		idx := i + first
		if s.End <= s.Start {
			log.WithFields(logrus.Fields{"segment": idx, "start": s.Start, "end": s.End}).Warn("skipping empty segment")
			continue
		}
		dst := filepath.Join(dir, name(idx))
		if err := ff.ExtractSegment(ctx, src, dst, s.Start.Seconds(), s.End.Seconds(), kind); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", idx, err)
		}
		chunks = append(chunks, Chunk{Index: idx, Key: segmentKey(idx), Path: dst, Start: s.Start, End: s.End})
	}
	log.WithField("chunks", len(chunks)).Info("media chunked")
	return chunks, nil
}

// chunkStage fixes the pass TSV in place and cuts <stem>_<pass>_segment_NNN.mp4 per row.
func (p *Pipeline) chunkStage(ctx context.Context, j job, pass whisperx.Pass, tsv string) ([]Chunk, error) {
	rows, fixed, err := whisperx.FixFile(tsv, int64(p.cfg.Emotions.MinSegmentMs))
	if err != nil {
		return nil, fmt.Errorf("fix segments: %w", err)
	}
	if len(fixed) > 0 {
		j.log.WithFields(logrus.Fields{"pass": pass, "fixed": len(fixed)}).Info("extended short segments")
	}
	spans := make([]span, len(rows))
	for i, r := range rows {
		spans[i] = span{Start: time.Duration(r.StartMs) * time.Millisecond, End: time.Duration(r.EndMs) * time.Millisecond}
	}
	chunks, err := cutChunks(ctx, p.ffmpeg, j.log, j.media, j.outDir, spans, 1, j.kind, func(i int) string {
		return fmt.Sprintf("%s_%s_segment_%03d.mp4", j.stem, pass, i)
	})
	if err != nil {
		return nil, err
	}
	scp := filepath.Join(j.outDir, fmt.Sprintf("%s_%s_media_chunks.scp", j.stem, pass))
	if err := WriteSCP(scp, chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

// WriteSCP writes a Kaldi style list: one "segment_NNN<TAB>path" line per chunk.
func WriteSCP(path string, chunks []Chunk) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create scp: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, c := range chunks {
		fmt.Fprintf(w, "%s\t%s\n", c.Key, c.Path)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write scp: %w", err)
	}
	return f.Close()
}
