package whisperx

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// MissingSpeaker labels segments diarization could not attribute.
const MissingSpeaker = "SPEAKER_missing"

// Segment is one transcript sentence.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// Result is the decoded WhisperX JSON output.
type Result struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

// LoadResult reads a WhisperX JSON file.
func LoadResult(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return Result{}, fmt.Errorf("parse whisperx json: %w", err)
	}
	return res, nil
}

// FillSpeakers labels segments without a speaker as SPEAKER_missing and logs each one.
func (r *Result) FillSpeakers(log logrus.FieldLogger) int {
	missing := 0
	for i := range r.Segments {
		if r.Segments[i].Speaker == "" {
			r.Segments[i].Speaker = MissingSpeaker
			missing++
			if log != nil {
				log.WithField("start", r.Segments[i].Start).Warn("segment has no speaker")
			}
		}
	}
	return missing
}
