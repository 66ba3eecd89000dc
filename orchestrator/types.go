package orchestrator

import "time"

type Utterance struct {
	Start float64 // sec
	End   float64 // sec
	Text  string
	Spk   string // "SPEAKER_00"...
}

type EmotionScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// SentenceEmotions is one entry of <stem>_<pass>_emotions.json.
type SentenceEmotions struct {
	Sentence string         `json:"sentence"`
	StartS   float64        `json:"start_time_s"`
	EndS     float64        `json:"end_time_s"`
	Emotions []EmotionScore `json:"emotions"`
}

// Chunk is one media slice cut along a transcript row.
type Chunk struct {
	Index      int    // 1-based for the full pipeline, 0-based for the quick one
	Key        string // segment_NNN
	Path       string
	Start, End time.Duration
}

// Detection is the emotion service reply for one chunk.
type Detection struct {
	Chunk  Chunk
	Scores []EmotionScore
}

type Window struct {
	T0   float64     `json:"t0"`
	T1   float64     `json:"t1"`
	Utts []Utterance `json:"-"`
	// Aggregates
	SpeakingShare map[string]float64 `json:"speaking_share"` // per speaker fraction
	OverlapRate   float64            `json:"overlap_rate"`
	Emotions      map[string]float64 `json:"emotions,omitempty"` // label -> mean score
}
