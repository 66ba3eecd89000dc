package eventogram

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Labels are the AudioSet class names, indexed like the model outputs.
type Labels []string

// LoadLabels reads class_labels_indices.csv and returns the display_name column.
func LoadLabels(path string) (Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()
	return ReadLabels(f)
}

// ReadLabels parses a labels CSV with a header row containing display_name.
func ReadLabels(r io.Reader) (Labels, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read labels header: %w", err)
	}
	col := -1
	for i, h := range header {
		if strings.TrimSpace(h) == "display_name" {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, errors.New("read labels: no display_name column")
	}

	var labels Labels
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read labels: %w", err)
		}
		if col < len(rec) {
			labels = append(labels, strings.TrimSpace(rec[col]))
		}
	}
	return labels, nil
}

// Name returns the label for class i, or a placeholder when the list is short.
func (l Labels) Name(i int) string {
	if i >= 0 && i < len(l) {
		return l[i]
	}
	return fmt.Sprintf("class_%d", i)
}
