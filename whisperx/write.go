package whisperx

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/asticode/go-astisub"
)

// SpeakerTurn is one diarized span.
type SpeakerTurn struct {
	Start   float64
	End     float64
	Speaker string
}

// AssignSpeakers gives every segment the speaker of the turn it overlaps most.
// Segments overlapping no turn keep their speaker. It returns how many were assigned.
func (r *Result) AssignSpeakers(turns []SpeakerTurn) int {
	assigned := 0
	for i := range r.Segments {
		s := &r.Segments[i]
		best, bestOverlap := -1, 0.0
		for k, t := range turns {
			if ov := math.Min(s.End, t.End) - math.Max(s.Start, t.Start); ov > bestOverlap {
				best, bestOverlap = k, ov
			}
		}
		if best >= 0 {
			s.Speaker = turns[best].Speaker
			assigned++
		}
	}
	return assigned
}

// WriteOutputs writes res in the same three formats a WhisperX pass leaves behind.
func WriteOutputs(out Outputs, res Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(out.JSON, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out.JSON, err)
	}

	subs := astisub.NewSubtitles()
	rows := make([]Row, 0, len(res.Segments))
	for _, s := range res.Segments {
		subs.Items = append(subs.Items, &astisub.Item{
			StartAt: seconds(s.Start),
			EndAt:   seconds(s.End),
			Lines:   []astisub.Line{{Items: []astisub.LineItem{{Text: s.Text}}}},
		})
		rows = append(rows, Row{StartMs: millis(s.Start), EndMs: millis(s.End), Text: s.Text})
	}
	if err := writeWith(out.SRT, func(f *os.File) error { return subs.WriteToSRT(f) }); err != nil {
		return err
	}
	return writeWith(out.TSV, func(f *os.File) error { return WriteTSV(f, rows) })
}

func writeWith(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func seconds(s float64) time.Duration { return time.Duration(math.Round(s * float64(time.Second))) }

func millis(s float64) int64 { return int64(math.Round(s * 1000)) }
