package eventogram

import (
	"image/color"
	"math"
	"strings"
	"testing"
)

func TestJetEndpoints(t *testing.T) {
	tests := []struct {
		v    float64
		want color.RGBA
	}{
		{0, color.RGBA{0, 0, 128, 255}},
		{0.5, color.RGBA{128, 255, 128, 255}},
		{1, color.RGBA{128, 0, 0, 255}},
		{-3, color.RGBA{0, 0, 128, 255}},
		{math.NaN(), color.RGBA{0, 0, 128, 255}},
	}
	for _, tc := range tests {
		if got := Jet(tc.v); got != tc.want {
			t.Errorf("Jet(%v) = %v, want %v", tc.v, got, tc.want)
		}
	}
}

func TestLayoutLeftMargin(t *testing.T) {
	l := NewLayout(FigureWidth, FigureHeight, []string{"Speech", "Music"})
	if l.Left != textWidth("Speech")+labelPad {
		t.Fatalf("left = %d", l.Left)
	}
	if l.Spec.Max.Y > l.Events.Min.Y {
		t.Fatal("axes overlap")
	}
	long := NewLayout(FigureWidth, FigureHeight, []string{strings.Repeat("x", 400)})
	if long.LeftFraction() > maxLeftFrac+1e-9 {
		t.Fatalf("left fraction %v not clamped", long.LeftFraction())
	}
}

func testData(frames int) FigureData {
	fw := make(Framewise, frames)
	spec := make([][]float32, frames)
	for i := range fw {
		fw[i] = []float32{float32(i%10) / 10, 0.5, 0}
		spec[i] = []float32{float32(i), 1, 2, 3}
	}
	return FigureData{LogSpec: spec, Framewise: fw, Labels: Labels{"Speech", "Music", "Silence"}, FPS: 10, TopK: 2}
}

func TestFigureSizeAndAxesColours(t *testing.T) {
	img, l := testData(300).Figure(FigureWidth, FigureHeight)
	if b := img.Bounds(); b.Dx() != FigureWidth || b.Dy() != FigureHeight {
		t.Fatalf("size %v", b)
	}
	// the margin left of the axes stays white, the axes interior is coloured
	if c := img.RGBAAt(1, l.Spec.Min.Y+5); c != white {
		t.Fatalf("margin pixel %v", c)
	}
	c := img.RGBAAt(l.Spec.Min.X+l.Spec.Dx()/2, l.Spec.Min.Y+l.Spec.Dy()/2)
	if c == white {
		t.Fatal("spectrogram not drawn")
	}
}

func TestFigureHandlesEmptyInput(t *testing.T) {
	img, _ := FigureData{FPS: 100, TopK: 10}.Figure(320, 240)
	if img.Bounds().Dx() != 320 {
		t.Fatal("unexpected size")
	}
}
