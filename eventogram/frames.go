package eventogram

import (
	"fmt"
	"image"
	"io"
	"math"
	"sync"

	"github.com/maastricht-university/mediagram/dsp"
	"github.com/maastricht-university/mediagram/media"
)

type windowKey struct{ start, end int }

type windowData struct {
	idx    []int
	names  []string
	events [][]float64
}

// FrameRenderer draws the dynamic eventogram: a sliding window around the playhead with
// the window's own top-k classes and a red marker at the current frame.
type FrameRenderer struct {
	data     FigureData
	layout   Layout
	half     int
	adaptive bool
	lo, hi   float64

	mu      sync.Mutex
	windows map[windowKey]windowData
}

// NewFrameRenderer prepares a renderer for windows of windowSeconds.
func NewFrameRenderer(d FigureData, width, height int, windowSeconds float64, adaptive bool) *FrameRenderer {
	lo, hi := dsp.Range(d.LogSpec)
	return &FrameRenderer{
		data:     d,
		layout:   NewLayout(width, height, d.Labels),
		half:     int(windowSeconds*float64(d.FPS)) / 2,
		adaptive: adaptive,
		lo:       lo,
		hi:       hi,
		windows:  make(map[windowKey]windowData),
	}
}

// Layout exposes the fixed frame geometry.
func (r *FrameRenderer) Layout() Layout { return r.layout }

// Bounds returns the window shown at time t.
func (r *FrameRenderer) Bounds(t float64) (current, start, end int) {
	current = int(t * float64(r.data.FPS))
	if r.adaptive {
		start, end = AdaptiveWindow(r.data.Framewise, current, r.half, r.data.FPS)
	} else {
		start, end = Window(current, r.half, len(r.data.Framewise))
	}
	return current, start, end
}

func (r *FrameRenderer) window(start, end int) windowData {
	key := windowKey{start, end}
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.windows[key]; ok {
		return w
	}
	idx := TopK(r.data.Framewise, start, end, r.data.TopK)
	if len(idx) == 0 {
		idx = TopK(r.data.Framewise, 0, len(r.data.Framewise), r.data.TopK)
	}
	names := make([]string, len(idx))
	for i, c := range idx {
		names[i] = r.data.Labels.Name(c)
	}
	w := windowData{idx: idx, names: names, events: Columns(r.data.Framewise, start, end, idx)}
	r.windows[key] = w
	return w
}

// Frame draws the frame shown at time t.
func (r *FrameRenderer) Frame(t float64) *image.RGBA {
	l := r.layout
	current, start, end := r.Bounds(t)
	w := r.window(start, end)

	img := newCanvas(l.Width, l.Height)
	r.data.drawSpec(img, l.Spec, start, end, r.lo, r.hi)
	drawEvents(img, l.Events, w.events, len(w.idx))
	eventRows(img, l.Events, w.names)

	span := end - start
	fps := max(r.data.FPS, 1)
	windowSeconds := float64(span) / float64(fps)
	xTicks(img, l, float64(start)/float64(fps), span, fps, max(1, int(windowSeconds/5)))
	frame(img, l.Spec)
	frame(img, l.Events)
	drawText(img, l.Left+l.Spec.Dx()/2, l.Spec.Min.Y-6, fmt.Sprintf("Spectrogram and Eventogram (t=%.1fs)", t), 0)

	if span > 0 {
		x := l.Left + int(float64(current-start)/float64(span)*float64(l.Events.Dx()))
		x = min(max(x, l.Left), l.Width-2)
		vline(img, x, l.Spec.Min.Y, l.Spec.Max.Y, 2, red)
		vline(img, x, l.Events.Min.Y, l.Events.Max.Y, 2, red)
	}
	return img
}

// Source returns a frame iterator over [0, duration) at videoFPS for media.EncodeFrames.
func (r *FrameRenderer) Source(duration, videoFPS float64) media.FrameSource {
	total := int(math.Ceil(duration * videoFPS))
	i := 0
	return func() (*image.RGBA, error) {
		if i >= total {
			return nil, io.EOF
		}
		t := float64(i) / videoFPS
		i++
		return r.Frame(t), nil
	}
}

// Cached reports how many distinct windows have been computed.
func (r *FrameRenderer) Cached() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.windows)
}
