package eventogram

import (
	"math"
	"testing"
)

func TestKLDivergence(t *testing.T) {
	p := []float64{0.5, 0.5}
	if d := KLDivergence(p, p); math.Abs(d) > 1e-12 {
		t.Fatalf("identical distributions: %v", d)
	}
	d := KLDivergence([]float64{1, 0}, []float64{0.5, 0.5})
	if math.Abs(d-math.Log(2)) > 1e-6 {
		t.Fatalf("KL = %v, want ln 2", d)
	}
	// zeros in q are clipped rather than producing +Inf
	if d := KLDivergence([]float64{1, 0}, []float64{0, 1}); math.IsInf(d, 0) || d <= 0 {
		t.Fatalf("clipped KL = %v", d)
	}
}

func TestWindowClamps(t *testing.T) {
	tests := []struct{ cur, half, frames, s, e int }{
		{50, 10, 100, 40, 60},
		{3, 10, 100, 0, 13},
		{95, 10, 100, 85, 100},
	}
	for _, tc := range tests {
		s, e := Window(tc.cur, tc.half, tc.frames)
		if s != tc.s || e != tc.e {
			t.Errorf("Window(%d,%d,%d) = %d,%d want %d,%d", tc.cur, tc.half, tc.frames, s, e, tc.s, tc.e)
		}
	}
}

// stepMatrix is quiet class 0 up to change, then loud class 1.
func stepMatrix(frames, change int) Framewise {
	m := make(Framewise, frames)
	for i := range m {
		if i < change {
			m[i] = []float32{0.9, 0.05}
		} else {
			m[i] = []float32{0.05, 0.9}
		}
	}
	return m
}

func TestAdaptiveWindowWidensAtBoundary(t *testing.T) {
	m := stepMatrix(400, 100)
	// window [140,160); looking back 20 frames crosses nothing, at 40 the step at 100 is inside prev.
	s, e := AdaptiveWindow(m, 150, 10, 10)
	if e != 160 {
		t.Fatalf("end should stay, got %d", e)
	}
	if s >= 140 {
		t.Fatalf("start should widen past 140, got %d", s)
	}
}

func TestAdaptiveWindowStableSignal(t *testing.T) {
	m := stepMatrix(400, 0)
	s, e := AdaptiveWindow(m, 200, 10, 10)
	if s != 190 || e != 210 {
		t.Fatalf("stable signal should keep plain window, got %d,%d", s, e)
	}
}
