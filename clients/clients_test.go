package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestEmotionSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emotion" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.FormValue("granularity"); got != "utterance" {
			t.Errorf("granularity = %q", got)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			body, _ := io.ReadAll(f)
			if hdr.Filename != "chunk.mp4" || string(body) != "media" {
				t.Errorf("file %q body %q", hdr.Filename, body)
			}
		}
		_ = json.NewEncoder(w).Encode(EmoResp{Labels: []string{"生气/angry", "开心/happy"}, Scores: []float64{0.1, 0.9}})
	}))
	defer srv.Close()

	h := NewHTTP(5 * time.Second)
	out, err := h.Emotion(context.Background(), srv.URL+"/", writeTemp(t, "chunk.mp4", "media"), "")
	if err != nil {
		t.Fatalf("Emotion: %v", err)
	}
	pairs := out.Pairs()
	if len(pairs) != 2 || pairs[1].Label != "开心/happy" || pairs[1].Score != 0.9 {
		t.Fatalf("unexpected pairs %+v", pairs)
	}
}

func TestEmotionRejectsMismatchedLists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"labels":["a","b"],"scores":[1]}`))
	}))
	defer srv.Close()

	if _, err := NewHTTP(0).Emotion(context.Background(), srv.URL, writeTemp(t, "c.mp3", "x"), "utterance"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestNon200IncludesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTP(0).Tag(context.Background(), srv.URL, []byte("RIFF"), TagParams{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestTagForwardsParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.FormValue("model_type") != "Cnn14_DecisionLevelMax" || r.FormValue("device") != "cuda" || r.FormValue("sample_rate") != "32000" || r.FormValue("mel_bins") != "64" {
			t.Errorf("unexpected form %v", r.MultipartForm.Value)
		}
		_, _ = w.Write([]byte(`{"framewise_output":[[0.1,0.2],[0.3,0.4]],"clipwise_output":[0.3,0.4],"labels":["Speech","Music"]}`))
	}))
	defer srv.Close()

	out, err := NewHTTP(0).Tag(context.Background(), srv.URL, []byte("RIFF"), TagParams{ModelType: "Cnn14_DecisionLevelMax", SampleRate: 32000, MelBins: 64, CUDA: true})
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	if len(out.Framewise) != 2 || out.Framewise[1][1] != 0.4 || out.Labels[0] != "Speech" {
		t.Fatalf("unexpected response %+v", out)
	}
}

func TestASRAndDiarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 20)
		switch r.URL.Path {
		case "/transcribe":
			if r.FormValue("language") != "en" {
				t.Errorf("language = %q", r.FormValue("language"))
			}
			_, _ = w.Write([]byte(`{"language":"en","segments":[{"start":0,"end":1.5,"text":"hello"}]}`))
		case "/diarize":
			if r.FormValue("min_speakers") != "2" || r.FormValue("max_speakers") != "" {
				t.Errorf("speaker bounds %v", r.MultipartForm.Value)
			}
			_, _ = w.Write([]byte(`{"turns":[{"start":0,"end":2,"speaker":"SPEAKER_00"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	h := NewHTTP(0)
	media := writeTemp(t, "talk.wav", "pcm")
	asr, err := h.ASR(context.Background(), srv.URL, media, "en")
	if err != nil || asr.Language != "en" || asr.Segments[0].Text != "hello" {
		t.Fatalf("ASR = %+v, %v", asr, err)
	}
	dia, err := h.Diarize(context.Background(), srv.URL, media, 2, 0)
	if err != nil || dia.Turns[0].Speaker != "SPEAKER_00" {
		t.Fatalf("Diarize = %+v, %v", dia, err)
	}
}

func TestFetchText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("user") == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("<feed/>"))
	}))
	defer srv.Close()

	h := NewHTTP(0)
	got, err := h.FetchText(context.Background(), srv.URL+"?user=Piotrus")
	if err != nil || got != "<feed/>" {
		t.Fatalf("FetchText = %q, %v", got, err)
	}
	if _, err := h.FetchText(context.Background(), srv.URL+"?user=missing"); err == nil {
		t.Fatal("expected error on 404")
	}
}
