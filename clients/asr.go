package clients

import (
	"context"
	"os"
	"path/filepath"
)

type TransSeg struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}
type ASRResp struct {
	Segments []TransSeg `json:"segments"`
	Language string     `json:"language"`
}

// ASR posts a media file to /transcribe. language may be empty for auto-detection.
func (h *HTTP) ASR(ctx context.Context, url, mediaPath, language string) (*ASRResp, error) {
	fd, err := os.Open(mediaPath)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	fields := map[string]string{}
	if language != "" {
		fields["language"] = language
	}
	var out ASRResp
	if err := h.postMultipart(ctx, "asr", url, "/transcribe", upload{filepath.Base(mediaPath), fd}, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
