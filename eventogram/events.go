package eventogram

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
)

// TopK returns up to k class indexes ordered by descending max probability within
// frames [start, end). Ties keep the lower index first.
func TopK(m Framewise, start, end, k int) []int {
	start = max(start, 0)
	end = min(end, len(m))
	if start >= end || k <= 0 {
		return nil
	}
	classes := m.Classes()
	peaks := make([]float32, classes)
	for _, row := range m[start:end] {
		for c, v := range row {
			if v > peaks[c] {
				peaks[c] = v
			}
		}
	}
	idx := make([]int, classes)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return peaks[idx[a]] > peaks[idx[b]] })
	if k < len(idx) {
		idx = idx[:k]
	}
	return idx
}

// Columns extracts the given classes from frames [start, end) as a frames x len(idx) matrix.
func Columns(m Framewise, start, end int, idx []int) [][]float64 {
	start = max(start, 0)
	end = min(end, len(m))
	if start >= end {
		return nil
	}
	out := make([][]float64, end-start)
	for f := start; f < end; f++ {
		row := make([]float64, len(idx))
		for j, c := range idx {
			row[j] = float64(m[f][c])
		}
		out[f-start] = row
	}
	return out
}

// WriteCSV emits time,sound,probability rows for the first frames rows of m whose
// probability exceeds threshold.
func WriteCSV(w io.Writer, m Framewise, labels Labels, fps, frames int, threshold float64) error {
	if fps <= 0 {
		return fmt.Errorf("write csv: frames per second must be positive, got %d", fps)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "sound", "probability"}); err != nil {
		return err
	}
	frames = min(frames, len(m))
	// compare at model precision so a 0.2 score does not pass a 0.2 threshold
	limit := float32(threshold)
	for i := 0; i < frames; i++ {
		ts := round3(float64(i) / float64(fps))
		for c, p := range m[i] {
			if p > limit {
				rec := []string{
					strconv.FormatFloat(ts, 'f', -1, 64),
					labels.Name(c),
					strconv.FormatFloat(float64(p), 'f', -1, 32),
				}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
