package eventogram

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maastricht-university/mediagram/clients"
	"github.com/maastricht-university/mediagram/config"
	"github.com/maastricht-university/mediagram/logging"
	"github.com/maastricht-university/mediagram/media"
)

type fakeTagger struct {
	calls int
	fail  map[int]bool
}

func (f *fakeTagger) Tag(_ context.Context, _ string, wav []byte, _ clients.TagParams) (*clients.TagResp, error) {
	call := f.calls
	f.calls++
	if f.fail[call] {
		return nil, errors.New("service unavailable")
	}
	samples := (len(wav) - 44) / 2
	frames := samples / 320
	fw := make([][]float32, frames)
	for i := range fw {
		fw[i] = []float32{0.9, 0.1, 0.3}
	}
	return &clients.TagResp{
		Framewise: fw,
		Clipwise:  []float32{0.9, 0.1, 0.3},
		Labels:    []string{"Speech", "Music", "Dog"},
		Embedding: make([]float32, 2048),
	}, nil
}

func audioProbe(duration string) func(context.Context, string, string) (media.Result, error) {
	return func(context.Context, string, string) (media.Result, error) {
		return media.ParseResult([]byte(`{"format":{"duration":"` + duration + `"},"streams":[{"codec_type":"audio","codec_name":"mp3"}]}`))
	}
}

func testOptions(t *testing.T, tagger Tagger, calls *[][]string) Options {
	t.Helper()
	settings := config.Default().Eventogram
	settings.ChunkSeconds = 1
	settings.LabelsCSV = ""
	input := filepath.Join(t.TempDir(), "talk.mp3")
	if err := os.WriteFile(input, []byte("mp3"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	runner := media.NewRunner("ffmpeg", logging.Discard()).WithCommandRunner(func(_ context.Context, _ string, args ...string) error {
		*calls = append(*calls, args)
		return nil
	})
	return Options{
		Input:     input,
		Settings:  settings,
		FFmpeg:    runner,
		Tagger:    tagger,
		Log:       logging.Discard(),
		Out:       &bytes.Buffer{},
		FreeBytes: func(string) (uint64, error) { return 10e9, nil },
		Probe:     audioProbe("2.0"),
		Decode: func(context.Context, string, int) ([]float32, error) {
			return make([]float32, 64000), nil
		},
	}
}

func TestRunWritesFigureCSVAndVideo(t *testing.T) {
	var calls [][]string
	tagger := &fakeTagger{fail: map[int]bool{1: true}}
	opts := testOptions(t, tagger, &calls)

	out, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tagger.calls != 2 {
		t.Fatalf("expected 2 chunks, got %d", tagger.calls)
	}
	if !strings.HasSuffix(out.PNG, "talk_audioset_tagging_cnn.png") || !strings.HasSuffix(out.Video, "_eventogram.mp4") {
		t.Fatalf("unexpected outputs %+v", out)
	}
	if out.Overlay != "" {
		t.Fatalf("audio input should not be overlaid: %+v", out)
	}

	f, err := os.Open(out.PNG)
	if err != nil {
		t.Fatalf("open png: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != FigureWidth || b.Dy() != FigureHeight {
		t.Fatalf("png size %v", b)
	}

	csvBytes, err := os.ReadFile(out.CSV)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(csvBytes)), "\n")
	if lines[0] != "time,sound,probability" {
		t.Fatalf("header %q", lines[0])
	}
	// chunk 2 failed: 100 frames of Speech and Dog, the padded second half is silent
	if len(lines) != 1+100*2 {
		t.Fatalf("csv rows = %d", len(lines)-1)
	}
	if lines[1] != "0,Speech,0.9" {
		t.Fatalf("first row %q", lines[1])
	}

	if len(calls) != 1 || !strings.Contains(strings.Join(calls[0], " "), out.Video) {
		t.Fatalf("expected one marker render, got %v", calls)
	}
}

func TestRunRefusesLowDisk(t *testing.T) {
	var calls [][]string
	opts := testOptions(t, &fakeTagger{}, &calls)
	opts.FreeBytes = func(string) (uint64, error) { return 5e8, nil }
	if _, err := Run(context.Background(), opts); !errors.Is(err, ErrInsufficientDisk) {
		t.Fatalf("expected ErrInsufficientDisk, got %v", err)
	}
}

func TestRunNoDuration(t *testing.T) {
	var calls [][]string
	opts := testOptions(t, &fakeTagger{}, &calls)
	opts.Probe = audioProbe("N/A")
	if _, err := Run(context.Background(), opts); !errors.Is(err, media.ErrNoDuration) {
		t.Fatalf("expected ErrNoDuration, got %v", err)
	}
}

func TestRunAllChunksFail(t *testing.T) {
	var calls [][]string
	opts := testOptions(t, &fakeTagger{fail: map[int]bool{0: true, 1: true}}, &calls)
	if _, err := Run(context.Background(), opts); !errors.Is(err, ErrNoFrames) {
		t.Fatalf("expected ErrNoFrames, got %v", err)
	}
}

func TestRunVideoConvertsVFRAndOverlays(t *testing.T) {
	var calls [][]string
	opts := testOptions(t, &fakeTagger{}, &calls)
	opts.Probe = func(context.Context, string, string) (media.Result, error) {
		return media.ParseResult([]byte(`{"format":{"duration":"2"},"streams":[
			{"codec_type":"video","codec_name":"h264","width":640,"height":360,"avg_frame_rate":"2997/100","r_frame_rate":"30/1"},
			{"codec_type":"audio","codec_name":"aac"}]}`))
	}

	out, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(calls) != 3 {
		t.Fatalf("expected cfr, marker and overlay calls, got %d", len(calls))
	}
	cfr := strings.Join(calls[0], " ")
	if !strings.Contains(cfr, "temp_cfr_talk.mp4") || !strings.Contains(cfr, "-fps_mode cfr") {
		t.Fatalf("cfr call %q", cfr)
	}
	overlay := strings.Join(calls[2], " ")
	if !strings.Contains(overlay, "scale=1280:720") || !strings.Contains(overlay, "scale=1280:144") {
		t.Fatalf("overlay call %q", overlay)
	}
	if !strings.HasSuffix(out.Overlay, "talk_audioset_tagging_cnn_eventogram_overlay.mp4") {
		t.Fatalf("overlay path %q", out.Overlay)
	}
}

func TestTagPrintsTable(t *testing.T) {
	var calls [][]string
	opts := testOptions(t, &fakeTagger{}, &calls)
	buf := &bytes.Buffer{}
	opts.Out = buf
	res, err := Tag(context.Background(), opts)
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	if len(res.Top) != 3 || res.Top[0].Label != "Speech" || res.EmbeddingSize != 2048 {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.Contains(buf.String(), "Speech") || !strings.Contains(buf.String(), "0.900") {
		t.Fatalf("table output %q", buf.String())
	}
}
