package orchestrator

import (
	"math"
	"sort"

	"github.com/maastricht-university/mediagram/report"
)

// window slides a size-second window with the given overlap over the utterances.
func window(utts []Utterance, size, overlap float64) []Window {
	if len(utts) == 0 || size <= 0 {
		return nil
	}
	// compute session bounds
	start := utts[0].Start
	end := utts[0].End
	for _, u := range utts {
		start = math.Min(start, u.Start)
		end = math.Max(end, u.End)
	}
	step := size - overlap
	if step <= 0 {
		step = size
	}

	var out []Window
	for t0 := start; t0 < end; t0 += step {
		t1 := math.Min(t0+size, end)
		var slice []Utterance
		for _, u := range utts {
			if u.End <= t0 || u.Start >= t1 {
				continue
			}
			slice = append(slice, u)
		}
		out = append(out, Window{T0: t0, T1: t1, Utts: slice})
	}
	return out
}

// aggregate fills the speaking share per speaker and the fraction of the window
// where two or more speakers talk at once.
func aggregate(w *Window) {
	if len(w.Utts) == 0 {
		return
	}
	total := 0.0
	w.SpeakingShare = map[string]float64{}
	type edge struct {
		t     float64
		delta int
	}
	var edges []edge
	for _, u := range w.Utts {
		// clip to the window so that long turns do not dominate
		s, e := math.Max(u.Start, w.T0), math.Min(u.End, w.T1)
		d := math.Max(0, e-s)
		total += d
		w.SpeakingShare[u.Spk] += d
		edges = append(edges, edge{t: s, delta: +1}, edge{t: e, delta: -1})
	}
	// ends sort before starts at the same instant: back-to-back turns are not overlap
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].t == edges[j].t {
			return edges[i].delta < edges[j].delta
		}
		return edges[i].t < edges[j].t
	})
	active := 0
	last := edges[0].t
	overlap := 0.0
	for _, e := range edges {
		if active > 1 {
			overlap += e.t - last
		}
		active += e.delta
		last = e.t
	}
	if total > 0 {
		for k := range w.SpeakingShare {
			w.SpeakingShare[k] /= total
		}
	}
	if winDur := w.T1 - w.T0; winDur > 0 {
		w.OverlapRate = overlap / winDur
	}
}

// attachEmotions sets the mean score per label over the sentences overlapping each window.
func attachEmotions(windows []Window, entries []SentenceEmotions) {
	for wi := range windows {
		w := &windows[wi]
		sums := map[string]float64{}
		n := 0
		for _, e := range entries {
			if e.EndS <= w.T0 || e.StartS >= w.T1 {
				continue
			}
			n++
			for _, s := range e.Emotions {
				sums[s.Label] += s.Score
			}
		}
		if n == 0 {
			continue
		}
		w.Emotions = make(map[string]float64, len(sums))
		for k, v := range sums {
			w.Emotions[k] = v / float64(n)
		}
	}
}

// speakerDynamics windows the diarized utterances and aggregates each window.
func speakerDynamics(utts []Utterance, entries []SentenceEmotions, size, overlap float64) []Window {
	windows := window(utts, size, overlap)
	for i := range windows {
		aggregate(&windows[i])
	}
	attachEmotions(windows, entries)
	return windows
}

// dynamicsTable lays the windows out as rows with one column per speaker.
func dynamicsTable(windows []Window) *report.Dynamics {
	if len(windows) == 0 {
		return nil
	}
	seen := map[string]bool{}
	var speakers []string
	for _, w := range windows {
		for spk := range w.SpeakingShare {
			if !seen[spk] {
				seen[spk] = true
				speakers = append(speakers, spk)
			}
		}
	}
	sort.Strings(speakers)
	d := &report.Dynamics{Speakers: speakers}
	for _, w := range windows {
		shares := make([]float64, len(speakers))
		for i, spk := range speakers {
			shares[i] = w.SpeakingShare[spk]
		}
		d.Windows = append(d.Windows, report.DynamicsWindow{Start: w.T0, End: w.T1, Shares: shares, OverlapRate: w.OverlapRate})
	}
	return d
}
