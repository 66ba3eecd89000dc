package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"sort"
)

// PlotlyCDN is the script every page loads plotly.js from.
const PlotlyCDN = "https://cdn.plot.ly/plotly-2.35.2.min.js"

// qualitative is plotly's default discrete palette.
var qualitative = []string{
	"#636EFA", "#EF553B", "#00CC96", "#AB63FA", "#FFA15A",
	"#19D3F3", "#FF6692", "#B6E880", "#FF97FF", "#FECB52",
}

type Line struct {
	Color string `json:"color,omitempty"`
	Width int    `json:"width,omitempty"`
}

type Marker struct {
	Size int `json:"size,omitempty"`
}

// Trace is one plotly scatter trace.
type Trace struct {
	Type         string    `json:"type"`
	Mode         string    `json:"mode,omitempty"`
	Name         string    `json:"name,omitempty"`
	X            []float64 `json:"x"`
	Y            []float64 `json:"y"`
	Text         any       `json:"text,omitempty"`
	TextPosition string    `json:"textposition,omitempty"`
	HoverInfo    string    `json:"hoverinfo,omitempty"`
	Line         *Line     `json:"line,omitempty"`
	Marker       *Marker   `json:"marker,omitempty"`
}

type Axis struct {
	Title     string    `json:"title,omitempty"`
	TickMode  string    `json:"tickmode,omitempty"`
	TickVals  []float64 `json:"tickvals,omitempty"`
	TickText  []string  `json:"ticktext,omitempty"`
	TickAngle int       `json:"tickangle,omitempty"`
	Range     []float64 `json:"range,omitempty"`
}

type Legend struct {
	Title       string  `json:"title,omitempty"`
	Orientation string  `json:"orientation,omitempty"`
	X           float64 `json:"x,omitempty"`
	Y           float64 `json:"y,omitempty"`
	XAnchor     string  `json:"xanchor,omitempty"`
	YAnchor     string  `json:"yanchor,omitempty"`
}

type Margin struct {
	L, R, T, B int
}

func (m Margin) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]int{"l": m.L, "r": m.R, "t": m.T, "b": m.B})
}

type Layout struct {
	Title      string  `json:"title,omitempty"`
	XAxis      Axis    `json:"xaxis"`
	YAxis      Axis    `json:"yaxis"`
	Legend     *Legend `json:"legend,omitempty"`
	Height     int     `json:"height,omitempty"`
	HoverMode  string  `json:"hovermode,omitempty"`
	Margin     *Margin `json:"margin,omitempty"`
	ShowLegend *bool   `json:"showlegend,omitempty"`
}

// Figure is a plotly figure: traces plus layout.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// JS encodes the figure for a <script> block. encoding/json escapes <, > and &.
func (f Figure) JS() (template.JS, error) {
	raw, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encode figure: %w", err)
	}
	return template.JS(raw), nil
}

// Plot is a figure bound to a div id.
type Plot struct {
	ID     string
	Figure template.JS
}

func newPlot(id string, f Figure) (*Plot, error) {
	js, err := f.JS()
	if err != nil {
		return nil, err
	}
	return &Plot{ID: id, Figure: js}, nil
}

func boolPtr(b bool) *bool { return &b }

// CumulativeSeries sums scores per label across chunks. Every series starts at 0 so
// that x runs 0..len(chunks). Labels keep their order of first appearance; a label
// absent from a chunk contributes 0 there.
func CumulativeSeries(chunks [][]Score) ([]string, map[string][]float64) {
	var order []string
	series := map[string][]float64{}
	for i, scores := range chunks {
		for _, s := range scores {
			if _, ok := series[s.Label]; !ok {
				order = append(order, s.Label)
				series[s.Label] = make([]float64, i+1)
			}
		}
		for _, label := range order {
			ys := series[label]
			prev := ys[len(ys)-1]
			series[label] = append(ys, prev+scoreOf(scores, label))
		}
	}
	return order, series
}

func scoreOf(scores []Score, label string) float64 {
	for _, s := range scores {
		if s.Label == label {
			return s.Score
		}
	}
	return 0
}

// ProgressionFigure charts cumulative scores against the segment index.
func ProgressionFigure(chunks [][]Score) Figure {
	order, series := CumulativeSeries(chunks)
	xs := make([]float64, len(chunks)+1)
	ticks := make([]string, len(xs))
	for i := range xs {
		xs[i] = float64(i)
		ticks[i] = fmt.Sprint(i)
	}
	fig := Figure{Layout: Layout{
		Title:  "Emotion Progression Over Time (interactive graph)",
		XAxis:  Axis{Title: "Segment Index", TickMode: "array", TickVals: xs, TickText: ticks, TickAngle: 90},
		YAxis:  Axis{Title: "Cumulative Emotion Score"},
		Legend: &Legend{Title: "Emotions"},
	}}
	for _, label := range order {
		ys := series[label]
		text := make([]string, len(ys))
		for i, v := range ys {
			text[i] = fmt.Sprintf("%.2f", v)
		}
		fig.Data = append(fig.Data, Trace{
			Type: "scatter", Mode: "lines+markers", Name: label,
			X: xs, Y: ys, Text: text, TextPosition: "top center",
			Marker: &Marker{Size: 10},
		})
	}
	return fig
}

// SpeakerTurn is one diarized segment on the timeline.
type SpeakerTurn struct {
	Speaker    string
	Start, End float64
}

// SpeakerTimeline draws one thick horizontal line per turn, a row per speaker.
// Speakers are sorted so that row order is stable between runs.
func SpeakerTimeline(turns []SpeakerTurn) Figure {
	var speakers []string
	row := map[string]int{}
	for _, t := range turns {
		if _, ok := row[t.Speaker]; !ok {
			row[t.Speaker] = 0
			speakers = append(speakers, t.Speaker)
		}
	}
	sort.Strings(speakers)
	tickVals := make([]float64, len(speakers))
	for i, s := range speakers {
		row[s] = i
		tickVals[i] = float64(i)
	}

	fig := Figure{Layout: Layout{
		Title: "Who says when (speakers' timestamps)",
		XAxis: Axis{Title: "Timestamp (in seconds)"},
		YAxis: Axis{
			Title: "Speakers identified", TickMode: "array",
			TickVals: tickVals, TickText: speakers,
			Range: []float64{-0.5, float64(len(speakers)) - 0.5},
		},
		Height:     400,
		Margin:     &Margin{L: 50, R: 50, T: 50, B: 50},
		ShowLegend: boolPtr(false),
	}}
	for _, t := range turns {
		y := float64(row[t.Speaker])
		fig.Data = append(fig.Data, Trace{
			Type: "scatter", Mode: "lines",
			Name:      fmt.Sprintf("%s (%.2f-%.2f)", t.Speaker, t.Start, t.End),
			X:         []float64{t.Start, t.End},
			Y:         []float64{y, y},
			Line:      &Line{Color: qualitative[row[t.Speaker]%len(qualitative)], Width: 10},
			HoverInfo: "text",
			Text:      fmt.Sprintf("Speaker: %s<br>Start: %.2f<br>End: %.2f", t.Speaker, t.Start, t.End),
		})
	}
	return fig
}

// ScoresOverTime is the quick report chart: one line per label against start time.
// Labels are taken from the first row, as every row carries the same label set.
func ScoresOverTime(rows []QuickRow) Figure {
	fig := Figure{Layout: Layout{
		Title:     "Emotion Scores Over Time",
		XAxis:     Axis{Title: "Time (s)"},
		YAxis:     Axis{Title: "Probability"},
		HoverMode: "closest",
		Legend:    &Legend{Orientation: "h", YAnchor: "bottom", Y: -0.5, XAnchor: "center", X: 0.5},
	}}
	if len(rows) == 0 {
		return fig
	}
	xs := make([]float64, len(rows))
	for i, r := range rows {
		xs[i] = r.Start
	}
	for _, s := range rows[0].Scores {
		y := make([]float64, len(rows))
		for i, r := range rows {
			y[i] = scoreOf(r.Scores, s.Label)
		}
		fig.Data = append(fig.Data, Trace{Type: "scatter", Mode: "lines+markers", Name: s.Label, X: xs, Y: y})
	}
	return fig
}
