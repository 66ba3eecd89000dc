package eventogram

import (
	"bytes"
	"slices"
	"strings"
	"testing"
)

func TestPlanChunks(t *testing.T) {
	tests := []struct {
		name  string
		total int
		want  []Chunk
	}{
		{"exact", 200, []Chunk{{0, 100}, {100, 200}}},
		{"remainder kept", 250, []Chunk{{0, 100}, {100, 200}, {200, 250}}},
		{"tiny remainder dropped", 205, []Chunk{{0, 100}, {100, 200}}},
		{"too short", 5, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// sample rate 100 with 1 s chunks: minimum chunk is 10 samples
			got := PlanChunks(tc.total, 100, 1)
			if !slices.Equal(got, tc.want) {
				t.Fatalf("PlanChunks = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFramesPerSecondAndPad(t *testing.T) {
	if fps := FramesPerSecond(32000, 320); fps != 100 {
		t.Fatalf("fps = %d", fps)
	}
	if fps := FramesPerSecond(32000, 330); fps != 96 {
		t.Fatalf("integer division expected, got %d", fps)
	}
	m := Framewise{{0.1, 0.2}}
	padded := m.PadTo(ExpectedFrames(0.035, 100))
	if len(padded) != 3 || len(padded[2]) != 2 || padded[2][0] != 0 {
		t.Fatalf("unexpected padding %v", padded)
	}
	if got := Concat(m, Framewise{{0.3, 0.4}}, padded).PadTo(2); len(got) != 2 || got[1][0] != 0.3 {
		t.Fatalf("truncate failed: %v", got)
	}
}

func TestTopK(t *testing.T) {
	m := Framewise{
		{0.1, 0.9, 0.0, 0.3},
		{0.8, 0.2, 0.0, 0.3},
		{0.0, 0.0, 0.95, 0.0},
	}
	if got := TopK(m, 0, 3, 2); !slices.Equal(got, []int{2, 1}) {
		t.Fatalf("TopK full = %v", got)
	}
	if got := TopK(m, 0, 2, 3); !slices.Equal(got, []int{1, 0, 3}) {
		t.Fatalf("TopK window = %v", got)
	}
	if got := TopK(m, 2, 2, 3); got != nil {
		t.Fatalf("empty window should be nil, got %v", got)
	}
	if got := TopK(m, -5, 99, 10); len(got) != 4 {
		t.Fatalf("bounds should clamp, got %v", got)
	}
}

func TestWriteCSVThresholdAndRounding(t *testing.T) {
	m := Framewise{
		{0.5, 0.1},
		{0.2, 0.25},
		{0.9, 0.9},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, m, Labels{"Speech", "Music"}, 3, 2, 0.2); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "time,sound,probability\n0,Speech,0.5\n0.333,Music,0.25\n"
	if buf.String() != want {
		t.Fatalf("csv =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriteCSVRejectsZeroFPS(t *testing.T) {
	if err := WriteCSV(&bytes.Buffer{}, nil, nil, 0, 0, 0.2); err == nil {
		t.Fatal("expected error")
	}
}

func TestReadLabels(t *testing.T) {
	src := "index,mid,display_name\n0,/m/09x0r,Speech\n1,/m/05zppz,\"Male speech, man speaking\"\n"
	labels, err := ReadLabels(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ReadLabels: %v", err)
	}
	if !slices.Equal([]string(labels), []string{"Speech", "Male speech, man speaking"}) {
		t.Fatalf("labels = %v", labels)
	}
	if labels.Name(7) != "class_7" {
		t.Fatalf("fallback name = %q", labels.Name(7))
	}
	if _, err := ReadLabels(strings.NewReader("index,name\n0,x\n")); err == nil {
		t.Fatal("expected missing column error")
	}
}

func TestTopClipwise(t *testing.T) {
	got := TopClipwise([]float32{0.1, 0.7, 0.3}, Labels{"a", "b", "c"}, 2)
	if len(got) != 2 || got[0].Label != "b" || got[1].Label != "c" {
		t.Fatalf("TopClipwise = %+v", got)
	}
}
