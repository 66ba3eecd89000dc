package whisperx

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// MinSegmentMs is the shortest chunk the emotion model handles reliably.
const MinSegmentMs = 500

// Row is one TSV line: start and end in milliseconds plus the text.
type Row struct {
	StartMs int64
	EndMs   int64
	Text    string
}

// DurationMs is end minus start.
func (r Row) DurationMs() int64 { return r.EndMs - r.StartMs }

// ReadTSV parses a WhisperX TSV file, skipping the header line.
func ReadTSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTSV(f)
}

// ParseTSV reads start<TAB>end<TAB>text rows after a header.
func ParseTSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	var rows []Row
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tsv: %w", err)
		}
		line++
		if line == 1 {
			continue
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("read tsv line %d: want at least 2 fields, got %d", line, len(rec))
		}
		start, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("read tsv line %d start: %w", line, err)
		}
		end, err := strconv.ParseInt(strings.TrimSpace(rec[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("read tsv line %d end: %w", line, err)
		}
		text := ""
		if len(rec) > 2 {
			text = rec[2]
		}
		rows = append(rows, Row{StartMs: start, EndMs: end, Text: text})
	}
	return rows, nil
}

// WriteTSV writes rows with the WhisperX header.
func WriteTSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write([]string{"start", "end", "text"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{strconv.FormatInt(r.StartMs, 10), strconv.FormatInt(r.EndMs, 10), r.Text}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FixShortSegments extends every segment shorter than minMs to the start of the next
// one. The last segment is left alone. It returns the indexes it changed.
func FixShortSegments(rows []Row, minMs int64) []int {
	var fixed []int
	for i := range rows {
		if rows[i].DurationMs() >= minMs || i+1 >= len(rows) {
			continue
		}
		rows[i].EndMs = rows[i+1].StartMs
		fixed = append(fixed, i)
	}
	return fixed
}

// FixFile applies FixShortSegments to a TSV on disk. The original is kept as <path>.bak.
func FixFile(path string, minMs int64) ([]Row, []int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	if err := os.WriteFile(path+".bak", raw, 0o644); err != nil {
		return nil, nil, fmt.Errorf("backup tsv: %w", err)
	}
	rows, err := ParseTSV(strings.NewReader(string(raw)))
	if err != nil {
		return nil, nil, err
	}
	fixed := FixShortSegments(rows, minMs)

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	if err := WriteTSV(f, rows); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("write tsv: %w", err)
	}
	return rows, fixed, f.Close()
}
