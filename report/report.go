// Package report renders the HTML dashboards from embedded templates.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"math"
	"strings"
	"sync"
	"time"
)

// DefaultBarScale is the number of blocks a score of 1.0 draws.
const DefaultBarScale = 50

var emoticons = map[string]string{
	"生气/angry":     "😠",
	"厌恶/disgusted":  "🤢",
	"恐惧/fearful":    "😨",
	"开心/happy":     "😊",
	"中立/neutral":   "😐",
	"其他/other":     "🤷‍♂️",
	"难过/sad":       "😢",
	"吃惊/surprised": "😲",
	"<unk>":        "❓",
}

// Emoticon returns the face for an emotion2vec label, or "" when there is none.
// Both the bilingual label and its English suffix are recognised.
func Emoticon(label string) string {
	if e, ok := emoticons[label]; ok {
		return e
	}
	for k, e := range emoticons {
		if i := strings.LastIndex(k, "/"); i >= 0 && k[i+1:] == label {
			return e
		}
	}
	return ""
}

// ProgressBar draws round(score*scale) full blocks. Scores outside [0,1] are clamped.
func ProgressBar(score float64, scale int) string {
	if scale <= 0 {
		scale = DefaultBarScale
	}
	score = math.Max(0, math.Min(1, score))
	return strings.Repeat("█", int(math.Round(score*float64(scale))))
}

// Score is one emotion label and its probability.
type Score struct {
	Label string
	Score float64
}

// Row is one chunk in the emotion page.
type Row struct {
	// Index is the 1-based chunk number.
	Index      int
	Sentence   string
	Start, End time.Duration
	// Chunk is the chunk file, relative to the page.
	Chunk  string
	Scores []Score
}

// Dynamics is the per-window speaker table of the diarization report.
type Dynamics struct {
	Speakers []string
	Windows  []DynamicsWindow
}

type DynamicsWindow struct {
	Start, End float64
	// Shares is aligned with Dynamics.Speakers.
	Shares      []float64
	OverlapRate float64
}

// EmotionPageData feeds EmotionPage.
type EmotionPageData struct {
	Tool   string
	Pass   string
	Source string // media file name, linked as ../Source
	Rows   []Row
	// Turns enables the speaker timeline.
	Turns    []SpeakerTurn
	Dynamics *Dynamics
	BarScale int
}

// QuickRow is one sentence in the quick page.
type QuickRow struct {
	Start, End float64
	Sentence   string
	Scores     []Score
}

type QuickPageData struct {
	Source string
	Rows   []QuickRow
}

type FeedPageData struct {
	User    string
	Content template.HTML
}

// Renderer parses the embedded templates once and executes them by name.
type Renderer struct {
	fsys    fs.FS
	pattern string
	once    sync.Once
	tmpl    *template.Template
	err     error
}

// NewRenderer reads templates from fsys. A nil fsys uses the embedded set.
func NewRenderer(fsys fs.FS) *Renderer {
	if fsys == nil {
		fsys = embeddedTemplates
	}
	return &Renderer{fsys: fsys, pattern: "templates/*.tmpl"}
}

var defaultRenderer = NewRenderer(nil)

func (r *Renderer) parse() error {
	r.once.Do(func() {
		t, err := template.New("root").Funcs(funcMap()).ParseFS(r.fsys, r.pattern)
		if err != nil {
			r.err = fmt.Errorf("parse templates %q: %w", r.pattern, err)
			return
		}
		r.tmpl = t
	})
	return r.err
}

// Render executes the named template into w. Output is buffered so that a
// failing template leaves w untouched.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	if r == nil {
		return errors.New("nil renderer")
	}
	if err := r.parse(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("execute template %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

type emotionView struct {
	EmotionPageData
	Progression *Plot
	Timeline    *Plot
	CDN         string
}

// EmotionPage renders the per-pass report: cumulative chart, optional speaker
// timeline and dynamics, then one row per chunk.
func EmotionPage(w io.Writer, data EmotionPageData) error {
	if data.BarScale <= 0 {
		data.BarScale = DefaultBarScale
	}
	chunks := make([][]Score, len(data.Rows))
	for i, r := range data.Rows {
		chunks[i] = r.Scores
	}
	view := emotionView{EmotionPageData: data, CDN: PlotlyCDN}
	var err error
	if view.Progression, err = newPlot("progression", ProgressionFigure(chunks)); err != nil {
		return err
	}
	if len(data.Turns) > 0 {
		if view.Timeline, err = newPlot("speakers", SpeakerTimeline(data.Turns)); err != nil {
			return err
		}
	}
	return defaultRenderer.Render(w, "emotions.html.tmpl", view)
}

type quickView struct {
	QuickPageData
	Chart *Plot
	CDN   string
}

// QuickPage renders the quick pipeline report: score lines over time and a table.
func QuickPage(w io.Writer, data QuickPageData) error {
	view := quickView{QuickPageData: data, CDN: PlotlyCDN}
	if len(data.Rows) > 0 {
		var err error
		if view.Chart, err = newPlot("scores", ScoresOverTime(data.Rows)); err != nil {
			return err
		}
	}
	return defaultRenderer.Render(w, "quick.html.tmpl", view)
}

// FeedPage wraps already unescaped feed markup in a document.
func FeedPage(w io.Writer, data FeedPageData) error {
	return defaultRenderer.Render(w, "feed.html.tmpl", data)
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"bar":      ProgressBar,
		"emoticon": Emoticon,
		"chunkNo":  func(i int) string { return fmt.Sprintf("%03d", i) },
		"stamp":    Stamp,
		"pct":      func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
		"f3":       func(v float64) string { return fmt.Sprintf("%.3f", v) },
		"f6":       func(v float64) string { return fmt.Sprintf("%.6f", v) },
		"secs":     func(v float64) string { return fmt.Sprintf("%.2f", v) },
		"scoreList": func(scores []Score) string {
			parts := make([]string, len(scores))
			for i, s := range scores {
				parts[i] = fmt.Sprintf("%s: %.3f", s.Label, s.Score)
			}
			return strings.Join(parts, ", ")
		},
	}
}

// Stamp formats d as H:MM:SS.mmm.
func Stamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%d:%02d:%02d.%03d", ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}
