package eventogram

import (
	"image"
	"math"
	"strconv"

	"github.com/nfnt/resize"

	"github.com/maastricht-university/mediagram/dsp"
)

// FigureData is everything the static figure and the dynamic frames draw from.
type FigureData struct {
	// LogSpec is the log magnitude spectrogram as frames x bins.
	LogSpec   [][]float32
	Framewise Framewise
	Labels    Labels
	FPS       int
	TopK      int
}

// Figure renders the full-clip spectrogram above the eventogram of the clip's top-k classes.
func (d FigureData) Figure(width, height int) (*image.RGBA, Layout) {
	frames := len(d.Framewise)
	idx := TopK(d.Framewise, 0, frames, d.TopK)
	names := make([]string, len(idx))
	for i, c := range idx {
		names[i] = d.Labels.Name(c)
	}

	l := NewLayout(width, height, names)
	img := newCanvas(width, height)
	lo, hi := dsp.Range(d.LogSpec)
	d.drawSpec(img, l.Spec, 0, len(d.LogSpec), lo, hi)

	events := Columns(d.Framewise, 0, frames, idx)
	drawEvents(img, l.Events, events, len(idx))
	eventRows(img, l.Events, names)

	duration := float64(frames) / math.Max(float64(d.FPS), 1)
	xTicks(img, l, 0, frames, d.FPS, max(5, int(duration/20)))
	frame(img, l.Spec)
	frame(img, l.Events)
	drawText(img, l.Left+l.Spec.Dx()/2, l.Spec.Min.Y-6, "Spectrogram and Eventogram", 0)
	return img, l
}

// drawSpec draws spectrogram frames [f0, f1), low frequencies at the bottom.
func (d FigureData) drawSpec(img *image.RGBA, r image.Rectangle, f0, f1 int, lo, hi float64) {
	f0 = max(f0, 0)
	f1 = min(f1, len(d.LogSpec))
	bins := 0
	if f1 > f0 {
		bins = len(d.LogSpec[f0])
	}
	heatmap(img, r, f1-f0, bins, func(c, row int) float64 { return float64(d.LogSpec[f0+c][row]) }, lo, hi, true, resize.Bilinear)
}

// drawEvents draws a frames x k probability matrix in [0,1], first class on top.
func drawEvents(img *image.RGBA, r image.Rectangle, events [][]float64, k int) {
	heatmap(img, r, len(events), k, func(c, row int) float64 { return events[c][row] }, 0, 1, false, resize.NearestNeighbor)
}

func itoa(n int) string { return strconv.Itoa(n) }
