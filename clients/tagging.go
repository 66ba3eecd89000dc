package clients

import (
	"bytes"
	"context"
)

// --- Audio tagging (/tag) ---

// TagResp carries the PANNs outputs for one audio clip.
type TagResp struct {
	Framewise [][]float32 `json:"framewise_output"`
	Clipwise  []float32   `json:"clipwise_output"`
	Labels    []string    `json:"labels,omitempty"`
	Embedding []float32   `json:"embedding,omitempty"`
}

// TagParams are the model settings forwarded with each clip.
type TagParams struct {
	ModelType      string
	CheckpointPath string
	SampleRate     int
	WindowSize     int
	HopSize        int
	MelBins        int
	FMin           int
	FMax           int
	CUDA           bool
}

func (p TagParams) fields() map[string]string {
	f := map[string]string{}
	if p.ModelType != "" {
		f["model_type"] = p.ModelType
	}
	if p.CheckpointPath != "" {
		f["checkpoint_path"] = p.CheckpointPath
	}
	for k, v := range map[string]int{
		"sample_rate": p.SampleRate,
		"window_size": p.WindowSize,
		"hop_size":    p.HopSize,
		"mel_bins":    p.MelBins,
		"fmin":        p.FMin,
		"fmax":        p.FMax,
	} {
		if v > 0 {
			f[k] = itoa(v)
		}
	}
	if p.CUDA {
		f["device"] = "cuda"
	} else {
		f["device"] = "cpu"
	}
	return f
}

// Tag posts a WAV clip to /tag.
func (h *HTTP) Tag(ctx context.Context, url string, wav []byte, params TagParams) (*TagResp, error) {
	var out TagResp
	if err := h.postMultipart(ctx, "tag", url, "/tag", upload{"chunk.wav", bytes.NewReader(wav)}, params.fields(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
