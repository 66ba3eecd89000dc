package dsp

import (
	"math"
	"testing"
)

func TestHannIsPeriodic(t *testing.T) {
	w := Hann(8)
	if w[0] != 0 {
		t.Fatalf("w[0] = %v", w[0])
	}
	if math.Abs(w[4]-1) > 1e-12 {
		t.Fatalf("peak w[4] = %v", w[4])
	}
	if math.Abs(w[1]-w[7]) > 1e-12 {
		t.Fatalf("window not symmetric around n/2: %v vs %v", w[1], w[7])
	}
}

func TestReflectPad(t *testing.T) {
	got := reflectPad([]float32{1, 2, 3, 4, 5}, 2)
	want := []float64{3, 2, 1, 2, 3, 4, 5, 4, 3}
	if len(got) != len(want) {
		t.Fatalf("len %d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestSTFTShape(t *testing.T) {
	samples := make([]float32, 3200)
	frames := STFT(samples, 1024, 320)
	if len(frames) != 1+3200/320 {
		t.Fatalf("frames = %d, want %d", len(frames), 1+3200/320)
	}
	if len(frames[0]) != 513 {
		t.Fatalf("bins = %d", len(frames[0]))
	}
}

func TestSTFTPeaksAtToneBin(t *testing.T) {
	const (
		sr   = 8000
		nFFT = 256
		bin  = 32
	)
	freq := float64(bin) * sr / nFFT
	samples := make([]float32, sr/4)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / sr))
	}
	frames := STFT(samples, nFFT, 64)
	mid := frames[len(frames)/2]
	best := 0
	for i, v := range mid {
		if v > mid[best] {
			best = i
		}
	}
	if best != bin {
		t.Fatalf("peak bin %d, want %d", best, bin)
	}
}

func TestLogMagnitudeInPlace(t *testing.T) {
	in := [][]float32{{0, float32(math.E)}, {1}}
	row := &in[0][0]
	m := LogMagnitude(in)
	if &m[0][0] != row {
		t.Fatal("LogMagnitude should reuse the input rows")
	}
	if math.Abs(float64(m[0][0])-math.Log(1e-10)) > 1e-4 || math.Abs(float64(m[0][1])-1) > 1e-6 || math.Abs(float64(m[1][0])) > 1e-6 {
		t.Fatalf("unexpected %v", m)
	}
	lo, hi := Range(m)
	if lo != float64(m[0][0]) || hi != float64(m[0][1]) {
		t.Fatalf("Range = %v %v", lo, hi)
	}
}

func TestSTFTRowsAreCapped(t *testing.T) {
	frames := STFT(make([]float32, 2048), 256, 128)
	if len(frames) != 1+2048/128 || len(frames[1]) != 129 {
		t.Fatalf("frames %d bins %d", len(frames), len(frames[1]))
	}
	// appending to one row must not overwrite the next
	for i, row := range frames {
		if cap(row) != len(row) {
			t.Fatalf("row %d cap %d len %d", i, cap(row), len(row))
		}
	}
}
