package clients

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// --- Emotion (/emotion) ---

// EmoResp is an emotion2vec style reply: parallel label and score lists.
type EmoResp struct {
	Key    string    `json:"key,omitempty"`
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

type EmoScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Pairs zips labels and scores. Extra entries on either side are ignored.
func (r *EmoResp) Pairs() []EmoScore {
	n := min(len(r.Labels), len(r.Scores))
	out := make([]EmoScore, n)
	for i := 0; i < n; i++ {
		out[i] = EmoScore{Label: r.Labels[i], Score: r.Scores[i]}
	}
	return out
}

// Emotion posts an audio or video chunk to /emotion. granularity is "utterance" or "frame".
func (h *HTTP) Emotion(ctx context.Context, url, audioPath, granularity string) (*EmoResp, error) {
	fd, err := os.Open(audioPath)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	if granularity == "" {
		granularity = "utterance"
	}
	var out EmoResp
	err = h.postMultipart(ctx, "emotion", url, "/emotion", upload{filepath.Base(audioPath), fd},
		map[string]string{"granularity": granularity}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Labels) == 0 {
		return nil, errors.New("emotion: empty label list")
	}
	if len(out.Labels) != len(out.Scores) {
		return nil, fmt.Errorf("emotion: %d labels but %d scores", len(out.Labels), len(out.Scores))
	}
	return &out, nil
}
