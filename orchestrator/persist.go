package orchestrator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/maastricht-university/mediagram/clients"
)

// PersistBundle is the run summary written to <output dir>/run.json.
type PersistBundle struct {
	RunID       string       `json:"run_id"`
	MediaPath   string       `json:"media_path"`
	GeneratedAt time.Time    `json:"generated_at"`
	Passes      []PassRecord `json:"passes"`
}

// PassRecord lists what one whisperx pass produced.
type PassRecord struct {
	Pass      string   `json:"pass"`
	Skipped   bool     `json:"skipped,omitempty"`
	Chunks    int      `json:"chunks,omitempty"`
	Sentences int      `json:"sentences,omitempty"`
	Files     []string `json:"files,omitempty"`
}

// writeJSON writes v indented by four spaces with HTML characters left as is.
func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// flatEntry is an AI friendly row: the sentence fields followed by one key per label.
// It marshals in insertion order, which a map would lose.
type flatEntry struct {
	keys   []string
	values map[string]any
}

func (f *flatEntry) set(k string, v any) {
	if _, ok := f.values[k]; !ok {
		f.keys = append(f.keys, k)
	}
	f.values[k] = v
}

func (f flatEntry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeRaw(&buf, k); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encodeRaw(&buf, f.values[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeRaw appends v as JSON without HTML escaping or the encoder's newline.
func encodeRaw(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

// flatten turns emotion entries into AI friendly rows keyed by English label.
func flatten(entries []SentenceEmotions) []flatEntry {
	out := make([]flatEntry, 0, len(entries))
	for _, e := range entries {
		f := flatEntry{values: map[string]any{}}
		f.set("sentence", e.Sentence)
		f.set("start_time_s", e.StartS)
		f.set("end_time_s", e.EndS)
		for _, s := range e.Emotions {
			f.set(flatKey(s.Label), s.Score)
		}
		out = append(out, f)
	}
	return out
}

// persistEmotions writes the emotions JSON and its flattened twin.
func persistEmotions(jsonPath, aiPath string, entries []SentenceEmotions) error {
	if entries == nil {
		entries = []SentenceEmotions{}
	}
	if err := writeJSON(jsonPath, entries); err != nil {
		return err
	}
	return writeJSON(aiPath, flatten(entries))
}

// persistRaw keeps the untouched service replies, one JSON object per line.
func persistRaw(path string, raw []clients.EmoResp) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i := range raw {
		if err := enc.Encode(raw[i]); err != nil {
			return err
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
