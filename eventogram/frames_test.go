package eventogram

import (
	"errors"
	"io"
	"testing"
)

func TestFrameRendererMemoizesWindows(t *testing.T) {
	r := NewFrameRenderer(testData(300), 640, 240, 4, false)
	a := r.Frame(10)
	b := r.Frame(10.05)
	if r.Cached() != 1 {
		t.Fatalf("expected a single cached window, got %d", r.Cached())
	}
	if a.Bounds() != b.Bounds() || a.Bounds().Dx() != 640 {
		t.Fatalf("frame bounds %v", a.Bounds())
	}
	r.Frame(20)
	if r.Cached() != 2 {
		t.Fatalf("expected two windows, got %d", r.Cached())
	}
}

func TestFrameRendererBounds(t *testing.T) {
	r := NewFrameRenderer(testData(300), 640, 240, 4, false)
	cur, s, e := r.Bounds(1)
	if cur != 10 || s != 0 || e != 30 {
		t.Fatalf("Bounds(1) = %d,%d,%d", cur, s, e)
	}
	_, s, e = r.Bounds(29.95)
	if s != 279 || e != 300 {
		t.Fatalf("Bounds near end = %d,%d", s, e)
	}
}

func TestFrameRendererMarkerIsRed(t *testing.T) {
	r := NewFrameRenderer(testData(300), 640, 240, 4, false)
	img := r.Frame(15)
	l := r.Layout()
	// t=15 sits in the middle of [130,170)
	x := l.Left + l.Events.Dx()/2
	c := img.RGBAAt(x, l.Events.Min.Y+l.Events.Dy()/4)
	if c.R < 200 || c.G > 80 {
		t.Fatalf("expected red marker at x=%d, got %v", x, c)
	}
}

func TestSourceYieldsAllFrames(t *testing.T) {
	r := NewFrameRenderer(testData(30), 160, 120, 2, false)
	next := r.Source(1, 4)
	n := 0
	for {
		_, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		n++
	}
	if n != 4 {
		t.Fatalf("frames = %d, want 4", n)
	}
}
