package eventogram

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/nfnt/resize"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	FigureWidth  = 1280
	FigureHeight = 480

	labelPad     = 14
	maxLeftFrac  = 0.45
	topFrac      = 0.05
	bottomFrac   = 0.92
	axesGapRatio = 0.05
)

var (
	white     = color.RGBA{255, 255, 255, 255}
	black     = color.RGBA{0, 0, 0, 255}
	gridColor = color.RGBA{0, 0, 0, 77}
	red       = color.RGBA{255, 0, 0, 204}
	face      = basicfont.Face7x13
)

// Jet maps v in [0,1] to the matplotlib-style jet colormap.
func Jet(v float64) color.RGBA {
	if math.IsNaN(v) {
		v = 0
	}
	v = math.Min(math.Max(v, 0), 1)
	ch := func(center float64) uint8 {
		x := 1.5 - math.Abs(4*v-center)
		return uint8(math.Round(255 * math.Min(math.Max(x, 0), 1)))
	}
	return color.RGBA{ch(3), ch(2), ch(1), 255}
}

// Layout places the two stacked axes inside the figure.
type Layout struct {
	Width, Height int
	Left          int
	Spec, Events  image.Rectangle
}

// NewLayout sizes the left margin from the widest label plus padding, capped at 45% of the width.
func NewLayout(width, height int, labels []string) Layout {
	widest := 0
	for _, l := range labels {
		widest = max(widest, textWidth(l))
	}
	left := min(widest+labelPad, int(maxLeftFrac*float64(width)))
	top := int(topFrac * float64(height))
	bottom := int(bottomFrac * float64(height))
	axH := int(float64(bottom-top) / (2 + axesGapRatio))
	gap := bottom - top - 2*axH
	return Layout{
		Width:  width,
		Height: height,
		Left:   left,
		Spec:   image.Rect(left, top, width, top+axH),
		Events: image.Rect(left, top+axH+gap, width, bottom),
	}
}

// LeftFraction is the left axis edge as a fraction of the figure width.
func (l Layout) LeftFraction() float64 {
	if l.Width == 0 {
		return 0
	}
	return float64(l.Left) / float64(l.Width)
}

// heatmap draws a cols x rows value grid into dst, stretched over rect. Columns beyond
// twice the pixel width are max-pooled first. flip puts row 0 at the bottom.
func heatmap(dst draw.Image, rect image.Rectangle, cols, rows int, at func(col, row int) float64, lo, hi float64, flip bool, filter resize.InterpolationFunction) {
	if cols <= 0 || rows <= 0 || rect.Empty() {
		draw.Draw(dst, rect, image.NewUniform(Jet(0)), image.Point{}, draw.Src)
		return
	}
	span := hi - lo
	if span <= 0 {
		span = 1
	}
	pooled := min(cols, 2*rect.Dx())
	src := image.NewRGBA(image.Rect(0, 0, pooled, rows))
	for px := 0; px < pooled; px++ {
		c0 := px * cols / pooled
		c1 := max((px+1)*cols/pooled, c0+1)
		for r := 0; r < rows; r++ {
			v := math.Inf(-1)
			for c := c0; c < c1; c++ {
				v = math.Max(v, at(c, r))
			}
			y := r
			if flip {
				y = rows - 1 - r
			}
			src.SetRGBA(px, y, Jet((v-lo)/span))
		}
	}
	scaled := resize.Resize(uint(rect.Dx()), uint(rect.Dy()), src, filter)
	draw.Draw(dst, rect, scaled, scaled.Bounds().Min, draw.Src)
}

func newCanvas(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(white), image.Point{}, draw.Src)
	return img
}

func textWidth(s string) int {
	return font.MeasureString(face, s).Ceil()
}

// drawText draws s with its baseline at y. align is -1 left, 0 centre, 1 right of x.
func drawText(dst draw.Image, x, y int, s string, align int) {
	switch align {
	case 0:
		x -= textWidth(s) / 2
	case 1:
		x -= textWidth(s)
	}
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(black), Face: face, Dot: fixed.P(x, y)}
	d.DrawString(s)
}

func hline(dst draw.Image, x0, x1, y int, c color.Color) {
	draw.Draw(dst, image.Rect(x0, y, x1, y+1), image.NewUniform(c), image.Point{}, draw.Over)
}

func vline(dst draw.Image, x, y0, y1, w int, c color.Color) {
	draw.Draw(dst, image.Rect(x, y0, x+w, y1), image.NewUniform(c), image.Point{}, draw.Over)
}

func frame(dst draw.Image, r image.Rectangle) {
	hline(dst, r.Min.X, r.Max.X, r.Min.Y, black)
	hline(dst, r.Min.X, r.Max.X, r.Max.Y-1, black)
	vline(dst, r.Min.X, r.Min.Y, r.Max.Y, 1, black)
	vline(dst, r.Max.X-1, r.Min.Y, r.Max.Y, 1, black)
}

// eventRows labels each eventogram row and separates rows with a light grid.
func eventRows(dst draw.Image, r image.Rectangle, labels []string) {
	n := len(labels)
	if n == 0 {
		return
	}
	rowH := float64(r.Dy()) / float64(n)
	for i, l := range labels {
		mid := r.Min.Y + int((float64(i)+0.5)*rowH)
		drawText(dst, r.Min.X-7, mid+4, l, 1)
		if i > 0 {
			hline(dst, r.Min.X, r.Max.X, r.Min.Y+int(float64(i)*rowH), gridColor)
		}
	}
}

// xTicks draws second ticks under both axes. firstSec is the time at the left edge,
// spanFrames the number of frames across the axes.
func xTicks(dst draw.Image, l Layout, firstSec float64, spanFrames, fps, interval int) {
	if spanFrames <= 0 || fps <= 0 || interval <= 0 {
		return
	}
	axW := float64(l.Events.Dx())
	startSec := int(math.Ceil(firstSec))
	for sec := startSec - startSec%interval; ; sec += interval {
		if float64(sec) < firstSec {
			continue
		}
		off := (float64(sec) - firstSec) * float64(fps)
		if off > float64(spanFrames) {
			break
		}
		x := l.Left + int(off/float64(spanFrames)*axW)
		x = min(x, l.Width-1)
		vline(dst, x, l.Spec.Max.Y-4, l.Spec.Max.Y, 1, black)
		vline(dst, x, l.Events.Max.Y, l.Events.Max.Y+4, 1, black)
		drawText(dst, x, l.Events.Max.Y+16, itoa(sec), 0)
	}
	drawText(dst, l.Left+int(axW/2), l.Height-4, "Seconds", 0)
}
