package eventogram

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// klThreshold marks an event boundary between neighbouring mean distributions.
const klThreshold = 0.5

// KLDivergence returns sum(p * log(p/q)) with both sides clipped to [1e-10, 1].
func KLDivergence(p, q []float64) float64 {
	n := min(len(p), len(q))
	pc := make([]float64, n)
	qc := make([]float64, n)
	for i := 0; i < n; i++ {
		pc[i] = clip(p[i])
		qc[i] = clip(q[i])
	}
	return stat.KullbackLeibler(pc, qc)
}

func clip(v float64) float64 {
	return math.Min(math.Max(v, 1e-10), 1)
}

// Window returns [start, end) of the frames shown around current.
func Window(current, half, frames int) (int, int) {
	return max(0, current-half), min(frames, current+half)
}

// AdaptiveWindow widens the plain window on the first side whose neighbourhood shows a
// distribution change. Offsets run from half to half+30s in one-second steps.
func AdaptiveWindow(m Framewise, current, half, fps int) (int, int) {
	frames := len(m)
	start, end := Window(current, half, frames)
	if fps <= 0 {
		return start, end
	}
	for offset := half; offset < half+30*fps; offset += fps {
		if start-offset >= 0 {
			prev := meanRows(m, start-offset, start)
			curr := meanRows(m, start, start+offset)
			if KLDivergence(prev, curr) > klThreshold {
				return max(0, start-offset/2), end
			}
		}
		if end+offset < frames {
			curr := meanRows(m, end-offset, end)
			next := meanRows(m, end, end+offset)
			if KLDivergence(curr, next) > klThreshold {
				return start, min(frames, end+offset/2)
			}
		}
	}
	return start, end
}

// meanRows averages rows [a, b) per class. Out-of-range bounds are clamped.
func meanRows(m Framewise, a, b int) []float64 {
	a = max(a, 0)
	b = min(b, len(m))
	out := make([]float64, m.Classes())
	if a >= b {
		return out
	}
	for _, row := range m[a:b] {
		for c, v := range row {
			out[c] += float64(v)
		}
	}
	n := float64(b - a)
	for c := range out {
		out[c] /= n
	}
	return out
}
