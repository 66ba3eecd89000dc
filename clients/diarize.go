package clients

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
)

// --- Diarization (/diarize) ---

type Turn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}
type DiarizeResp struct {
	Turns []Turn `json:"turns"`
}

// Diarize posts a media file to /diarize. Zero speaker bounds are left to the service.
func (h *HTTP) Diarize(ctx context.Context, url, mediaPath string, minSpeakers, maxSpeakers int) (*DiarizeResp, error) {
	fd, err := os.Open(mediaPath)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	fields := map[string]string{}
	if minSpeakers > 0 {
		fields["min_speakers"] = itoa(minSpeakers)
	}
	if maxSpeakers > 0 {
		fields["max_speakers"] = itoa(maxSpeakers)
	}
	var out DiarizeResp
	if err := h.postMultipart(ctx, "diarize", url, "/diarize", upload{filepath.Base(mediaPath), fd}, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func itoa(n int) string { return strconv.Itoa(n) }
